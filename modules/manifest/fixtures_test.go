package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const structuredJSON = `{
  "$schema": "https://schemas.mfekernel.dev/manifest/v2.json",
  "name": "checkout",
  "version": "2.1.0",
  "url": "https://cdn.example.com/checkout/remoteEntry.js",
  "dependencies": {
    "runtime": {"lodash": "^4.17.21"},
    "peer": {"react": "^18.0.0"}
  },
  "compatibility": {
    "container": "^1.0.0",
    "frameworks": {"react": ">=18.0.0 <19.0.0"},
    "browsers": {"chrome": ">=100"}
  },
  "requirements": {
    "services": [
      {"name": "logger"},
      {"name": "eventBus", "version": "^1.0.0"},
      {"name": "analytics", "optional": true}
    ],
    "permissions": ["storage"]
  },
  "capabilities": {
    "emits": ["checkout:completed", "cart:cleared"],
    "listens": ["cart:updated", "*"],
    "routes": ["/checkout"]
  },
  "metadata": {"displayName": "Checkout", "tags": ["commerce"]},
  "security": {"sandbox": true, "allowedOrigins": ["https://example.com"]},
  "config": {"loading": {"strategy": "lazy", "timeout": 5000, "retries": 2}},
  "lifecycle": {"healthCheck": {"url": "/health/checkout", "interval": 30000}}
}`

const legacyJSON = `{
  "name": "profile",
  "version": "1.4.0",
  "url": "https://cdn.example.com/profile/main.js",
  "dependencies": ["react", "react-dom@^18.2.0", "@angular/core@^17.0.0", "date-fns@^3.0.0", "axios"],
  "description": "User profile",
  "metadata": {"displayName": "Profile", "tags": ["account", "user"], "custom": 1}
}`

func mustParse(t *testing.T, data string) Document {
	t.Helper()
	doc, err := Parse([]byte(data), FormatJSON)
	require.NoError(t, err)
	return doc
}

func mustValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

func fieldsOf(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}
