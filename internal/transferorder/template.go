package transferorder

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Template is a loaded spreadsheet template
type Template struct {
	Kind    Kind
	Name    string // file name
	Version string // sha256 prefix of the content
	Data    []byte
}

// Template file names per kind
var templateFiles = map[Kind]string{
	KindPayment: "ordre_virement.xlsx",
	KindRappel:  "ordre_virement_rappel.xlsx",
}

// TemplateFileName returns the well-known template file name of a kind
func TemplateFileName(kind Kind) string {
	return templateFiles[kind]
}

// TemplateStore loads templates from a directory
type TemplateStore struct {
	dir    string
	logger *zap.Logger
}

// NewTemplateStore creates a new TemplateStore
func NewTemplateStore(dir string, logger *zap.Logger) *TemplateStore {
	return &TemplateStore{
		dir:    dir,
		logger: logger,
	}
}

// Load reads and validates the template of kind. Every failure wraps
// ErrTemplateUnavailable.
func (s *TemplateStore) Load(kind Kind) (*Template, error) {
	name, ok := templateFiles[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", ErrTemplateUnavailable, ErrUnknownKind, kind)
	}

	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("Failed to read template", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateUnavailable, name, err)
	}

	tpl := &Template{
		Kind:    kind,
		Name:    name,
		Version: contentVersion(data),
		Data:    data,
	}
	if err := ValidateTemplate(tpl); err != nil {
		s.logger.Error("Invalid template", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("Template loaded",
		zap.String("kind", string(kind)),
		zap.String("name", name),
		zap.String("version", tpl.Version))
	return tpl, nil
}

// ValidateTemplate checks that the template opens and has the sheet its
// layout writes to
func ValidateTemplate(tpl *Template) error {
	file, err := excelize.OpenReader(bytes.NewReader(tpl.Data))
	if err != nil {
		return fmt.Errorf("%w: %s: failed to open: %v", ErrTemplateUnavailable, tpl.Name, err)
	}
	defer file.Close()

	layout := layoutFor(tpl.Kind)
	if !slices.Contains(file.GetSheetList(), layout.Sheet) {
		return fmt.Errorf("%w: %s: missing sheet %q", ErrTemplateUnavailable, tpl.Name, layout.Sheet)
	}
	return nil
}

func contentVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}
