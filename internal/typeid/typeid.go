package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixElement   = "el"
	PrefixTemplate  = "tpl"
	PrefixAsset     = "asset"
	PrefixWorkspace = "ws"
	PrefixExport    = "exp"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewElementID() string   { return New(PrefixElement) }
func NewTemplateID() string  { return New(PrefixTemplate) }
func NewAssetID() string     { return New(PrefixAsset) }
func NewWorkspaceID() string { return New(PrefixWorkspace) }
func NewExportID() string    { return New(PrefixExport) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
