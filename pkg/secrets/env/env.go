// Package env implements pkg/secrets' Provider over environment variables.
package env

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/danielpid/dynamic-rag/pkg/secrets"
)

// DefaultPrefix is prepended to the normalized secret name.
const DefaultPrefix = "DYNRAG_SECRET_"

// Provider reads the secret "dynamic-rag/db_creds" from the variable
// DYNRAG_SECRET_DYNAMIC_RAG_DB_CREDS. A JSON object value yields its fields;
// any other value is returned under the key "value".
type Provider struct {
	Prefix string

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// VarName returns the environment variable a secret name maps to.
func (p *Provider) VarName(name string) string {
	prefix := p.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, name)
	return prefix + normalized
}

// GetSecret implements secrets.Provider.
func (p *Provider) GetSecret(_ context.Context, name string) (map[string]string, error) {
	lookup := p.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	varName := p.VarName(name)
	raw, ok := lookup(varName)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not set", secrets.ErrSecretNotFound, varName)
	}

	return secrets.Parse(raw), nil
}

var _ secrets.Provider = (*Provider)(nil)
