package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

var durationType = reflect.TypeFor[time.Duration]()

// AffixedEnvFeeder reads environment variables named PREFIX_TAG_SUFFIX from
// fields carrying an env tag. A nested struct field with an env tag adds its
// tag to the prefix of the fields inside it.
type AffixedEnvFeeder struct {
	Prefix string
	Suffix string
	logger debugLogger

	// lookup defaults to os.LookupEnv.
	lookup func(string) (string, bool)
}

// NewAffixedEnvFeeder creates an AffixedEnvFeeder.
func NewAffixedEnvFeeder(prefix, suffix string) *AffixedEnvFeeder {
	return &AffixedEnvFeeder{Prefix: prefix, Suffix: suffix}
}

// SetVerboseDebug logs every variable applied through logger.
func (f *AffixedEnvFeeder) SetVerboseDebug(logger interface{ Debug(msg string, args ...any) }) {
	f.logger = logger
}

// Feed reads environment variables into structure, a pointer to a struct.
func (f *AffixedEnvFeeder) Feed(structure any) error {
	if !isStructPointer(structure) {
		return ErrInvalidStructure
	}
	if f.Prefix == "" && f.Suffix == "" {
		return ErrEmptyPrefixAndSuffix
	}
	return f.fillStruct(reflect.ValueOf(structure).Elem(), strings.ToUpper(f.Prefix))
}

func (f *AffixedEnvFeeder) fillStruct(rv reflect.Value, prefix string) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)
		if !fieldType.IsExported() {
			continue
		}
		if err := f.processField(field, fieldType, prefix); err != nil {
			return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
		}
	}
	return nil
}

func (f *AffixedEnvFeeder) processField(field reflect.Value, fieldType reflect.StructField, prefix string) error {
	tag, tagged := fieldType.Tag.Lookup("env")

	switch {
	case field.Kind() == reflect.Struct:
		return f.fillStruct(field, joinName(prefix, strings.ToUpper(tag)))
	case field.Kind() == reflect.Pointer && field.Type().Elem().Kind() == reflect.Struct:
		if field.IsNil() {
			return nil
		}
		return f.fillStruct(field.Elem(), joinName(prefix, strings.ToUpper(tag)))
	case !tagged || tag == "":
		return nil
	}

	name := joinName(joinName(prefix, strings.ToUpper(tag)), strings.ToUpper(f.Suffix))
	lookup := f.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	value, ok := lookup(name)
	if !ok || value == "" {
		return nil
	}
	if err := setFieldValue(field, value); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if f.logger != nil {
		f.logger.Debug("Applied environment variable", "name", name, "field", fieldType.Name)
	}
	return nil
}

func joinName(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "_" + b
}

// setFieldValue converts strValue to the field's type and sets it.
func setFieldValue(field reflect.Value, strValue string) error {
	if !field.CanSet() {
		return ErrEnvFieldCannotBeSet
	}
	if field.Type() == durationType {
		d, err := time.ParseDuration(strValue)
		if err != nil {
			return fmt.Errorf("%w %v: %w", ErrEnvCannotConvert, field.Type(), err)
		}
		field.SetInt(int64(d))
		return nil
	}

	converted, err := cast.FromType(strValue, field.Type())
	if err != nil {
		return fmt.Errorf("%w %v: %w", ErrEnvCannotConvert, field.Type(), err)
	}
	field.Set(reflect.ValueOf(converted).Convert(field.Type()))
	return nil
}
