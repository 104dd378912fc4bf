package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/annel0/sniff-parser/internal/revision"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// document - формат YAML-файла каталога
type document struct {
	Build       uint32                  `yaml:"build"`
	Ends        map[string]int          `yaml:"ends"`
	Fields      map[string][]fieldEntry `yaml:"fields"`
	DynamicEnds map[string]int          `yaml:"dynamic_ends"`
	Dynamic     map[string][]fieldEntry `yaml:"dynamic"`
}

type fieldEntry struct {
	Name   string `yaml:"name"`
	Start  int    `yaml:"start"`
	Size   int    `yaml:"size"`
	Format string `yaml:"format"`
}

// LoadYAML разбирает один документ каталога
func LoadYAML(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ошибка разбора каталога: %w", err)
	}
	if doc.Build == 0 {
		return nil, fmt.Errorf("в каталоге не указана сборка")
	}

	c := New(revision.Build(doc.Build))

	apply := func(ends map[string]int, fields map[string][]fieldEntry, setEnd func(Kind, int) *Catalog, add func(Kind, FieldInfo) *Catalog) error {
		for name, end := range ends {
			kind, err := ParseKind(name)
			if err != nil {
				return err
			}
			setEnd(kind, end)
		}
		for name, entries := range fields {
			kind, err := ParseKind(name)
			if err != nil {
				return err
			}
			for _, e := range entries {
				format, err := ParseFormat(e.Format)
				if err != nil {
					return fmt.Errorf("поле %s: %w", e.Name, err)
				}
				add(kind, FieldInfo{Name: e.Name, Start: e.Start, Size: e.Size, Format: format})
			}
		}
		return nil
	}

	if err := apply(doc.Ends, doc.Fields, c.SetEnd, c.Add); err != nil {
		return nil, fmt.Errorf("каталог %d: %w", doc.Build, err)
	}
	if err := apply(doc.DynamicEnds, doc.Dynamic, c.SetDynamicEnd, c.AddDynamic); err != nil {
		return nil, fmt.Errorf("каталог %d (dynamic): %w", doc.Build, err)
	}
	return c, nil
}

// Set - набор каталогов разных сборок.
// Выбор идёт той же таблицей порогов, что и выбор процедур декодирования.
type Set struct {
	table *revision.Table[*Catalog]
}

// NewSet создаёт набор; при отсутствии подходящего каталога возвращается пустой
func NewSet(catalogs ...*Catalog) *Set {
	s := &Set{table: revision.NewTable(New(0))}
	for _, c := range catalogs {
		s.Add(c)
	}
	return s
}

// Add регистрирует каталог
func (s *Set) Add(c *Catalog) {
	s.table.Register(c.Build, c)
}

// For возвращает каталог ближайшей сборки, не превышающей build
func (s *Set) For(build revision.Build) *Catalog {
	return s.table.Select(build)
}

// Builds - сборки зарегистрированных каталогов
func (s *Set) Builds() []revision.Build {
	return s.table.Thresholds()
}

// Embedded загружает каталоги, встроенные в бинарник
func Embedded() (*Set, error) {
	return loadFS(embedded, "data")
}

// LoadDir загружает каталоги из каталога файловой системы поверх встроенных
func LoadDir(dir string) (*Set, error) {
	set, err := Embedded()
	if err != nil {
		return nil, err
	}
	extra, err := loadFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, err
	}
	for _, b := range extra.Builds() {
		set.Add(extra.For(b))
	}
	return set, nil
}

func loadFS(fsys fs.FS, root string) (*Set, error) {
	set := NewSet()
	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("чтение %s: %w", path, err)
		}
		c, err := LoadYAML(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		set.Add(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}
