package cmd

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/GoCodeAlone/mfekernel"
	"github.com/GoCodeAlone/mfekernel/feeders"
	"github.com/GoCodeAlone/mfekernel/host"
	"github.com/GoCodeAlone/mfekernel/modules/errorreporter"
	"github.com/GoCodeAlone/mfekernel/modules/eventbus"
	"github.com/GoCodeAlone/mfekernel/modules/manifest"
	"github.com/spf13/cobra"
)

// EnvPrefix prefixes environment overrides of the host configuration, e.g.
// MFE_HOST_CONTAINER_VERSION.
const EnvPrefix = "MFE"

type verboseFeeder interface {
	SetVerboseDebug(logger interface{ Debug(msg string, args ...any) })
}

type checkOptions struct {
	registry         string
	configFile       string
	envFile          string
	containerVersion string
	services         []string
	frameworks       []string
	output           string
}

// NewCheckCommand creates the check command. logger builds the command's
// logger once flags are parsed.
func NewCheckCommand(logger func(*cobra.Command) mfekernel.Logger) *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a manifest registry against a host",
		Long: `Check every manifest in a registry file for compatibility with a host.
The host is described by a configuration file, a .env file, MFE_*
environment variables and flags, in increasing order of precedence. The kernel's own services
(logger, eventBus, errorReporter, modal) are always available.

Examples:
  mfecli check --registry registry.json --container-version 1.2.0
  mfecli check --registry registry.yaml --service authz@2.1.0 --framework react=18.2.0
  mfecli check --registry registry.json --config host.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts, logger(cmd))
		},
	}
	cmd.Flags().StringVarP(&opts.registry, "registry", "r", "", "Registry file (array or name-keyed object of manifests)")
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "Host configuration file (yaml, json or toml)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "A .env file with MFE_* overrides")
	cmd.Flags().StringVar(&opts.containerVersion, "container-version", "", "Host container version")
	cmd.Flags().StringArrayVar(&opts.services, "service", nil, "Available service as name or name@version (repeatable)")
	cmd.Flags().StringArrayVar(&opts.frameworks, "framework", nil, "Shared framework as name=version (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format (text, json)")
	return cmd
}

func runCheck(cmd *cobra.Command, opts checkOptions, logger mfekernel.Logger) error {
	if opts.registry == "" {
		return ErrRegistryRequired
	}
	if opts.output != "text" && opts.output != "json" {
		return fmt.Errorf("%w: %s", ErrUnsupportedOutput, opts.output)
	}

	info, err := hostInfoFor(opts, logger)
	if err != nil {
		return err
	}

	docs, err := manifest.LoadRegistry(opts.registry)
	if err != nil {
		return err
	}
	manifests := make([]*manifest.Manifest, 0, len(docs))
	for i, doc := range docs {
		m, err := manifest.Decode(doc)
		if err != nil {
			return fmt.Errorf("registry entry %d: %w", i, err)
		}
		manifests = append(manifests, m)
	}

	results := manifest.NewChecker(info).CheckRegistry(manifests)
	names := slices.Sorted(maps.Keys(results))

	out := cmd.OutOrStdout()
	if opts.output == "json" {
		ordered := make([]manifest.CompatibilityResult, 0, len(names))
		for _, name := range names {
			ordered = append(ordered, results[name])
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ordered); err != nil {
			return err
		}
	} else {
		for _, name := range names {
			printf(out, "%s\n", results[name].Summary())
		}
	}

	var incompatible []string
	for _, name := range names {
		if !results[name].Compatible {
			incompatible = append(incompatible, name)
		}
	}
	if len(incompatible) > 0 {
		return fmt.Errorf("%w: %s", ErrIncompatible, strings.Join(incompatible, ", "))
	}
	return nil
}

// hostInfoFor assembles the host description from config file, environment
// and flags.
func hostInfoFor(opts checkOptions, logger mfekernel.Logger) (manifest.HostInfo, error) {
	cfg, err := loadHostConfig(opts.configFile, opts.envFile, logger)
	if err != nil {
		return manifest.HostInfo{}, err
	}
	info := cfg.Host

	if opts.containerVersion != "" {
		info.ContainerVersion = opts.containerVersion
	}
	if info.ServiceVersions == nil {
		info.ServiceVersions = map[string]string{}
	}
	if info.Frameworks == nil {
		info.Frameworks = map[string]string{}
	}

	for name, version := range map[string]string{
		eventbus.LoggerServiceName: host.LoggerVersion,
		eventbus.ServiceName:       eventbus.Version,
		errorreporter.ServiceName:  errorreporter.Version,
		host.ModalServiceName:      host.ModalVersion,
	} {
		info.Services = append(info.Services, name)
		info.ServiceVersions[name] = version
	}
	for _, s := range opts.services {
		name, version, _ := strings.Cut(s, "@")
		info.Services = append(info.Services, name)
		if version != "" {
			info.ServiceVersions[name] = version
		}
	}
	for _, f := range opts.frameworks {
		name, version, ok := strings.Cut(f, "=")
		if !ok || name == "" || version == "" {
			return manifest.HostInfo{}, fmt.Errorf("%w: %q", ErrInvalidFrameworkFlag, f)
		}
		info.Frameworks[name] = version
	}
	slices.Sort(info.Services)
	info.Services = slices.Compact(info.Services)
	return info, nil
}

// loadHostConfig builds the host configuration from defaults, an optional
// config file, an optional .env file and MFE_* environment variables. Each
// feeder logs what it applies at debug level.
func loadHostConfig(path, envFile string, logger mfekernel.Logger) (host.Config, error) {
	cfg := host.DefaultConfig()
	var sources []feeders.Feeder
	if path != "" {
		f, err := fileFeeder(path)
		if err != nil {
			return cfg, err
		}
		sources = append(sources, f)
	}
	if envFile != "" {
		sources = append(sources, feeders.NewDotEnvFeeder(envFile, EnvPrefix, ""))
	}
	sources = append(sources, feeders.NewAffixedEnvFeeder(EnvPrefix, ""))
	for _, f := range sources {
		if v, ok := f.(verboseFeeder); ok && logger != nil {
			v.SetVerboseDebug(logger)
		}
	}
	if err := host.LoadConfig(&cfg, sources...); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func fileFeeder(path string) (feeders.Feeder, error) {
	format, err := manifest.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case manifest.FormatYAML:
		return feeders.NewYamlFeeder(path), nil
	case manifest.FormatTOML:
		return feeders.NewTomlFeeder(path), nil
	default:
		return feeders.NewJSONFeeder(path), nil
	}
}
