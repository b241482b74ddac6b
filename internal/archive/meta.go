package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/orcpub/internal/domain"
)

// Файлы метаданных в порядке поиска. JSON читается тем же YAML-декодером.
var metaFileNames = []string{"orc_meta.yaml", "orc_meta.yml", "orc_meta.json"}

// Descriptor — описание оркестратора из пакета.
type Descriptor struct {
	UUID        string `yaml:"uuid"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Mode        string `yaml:"mode"`
	Way         string `yaml:"way"`

	// ProjectID и WorkspaceID исходного окружения. При импорте проект
	// всегда берётся из запроса.
	ProjectID   int64 `yaml:"project_id"`
	WorkspaceID int64 `yaml:"workspace_id"`

	Creator string `yaml:"creator"`
}

// Info возвращает запись каталога, ещё не привязанную к проекту.
func (d Descriptor) Info() *domain.OrchestratorInfo {
	return &domain.OrchestratorInfo{
		UUID:        d.UUID,
		Name:        d.Name,
		Description: d.Description,
		Type:        d.Type,
		Mode:        d.Mode,
		Way:         d.Way,
		ProjectID:   d.ProjectID,
		WorkspaceID: d.WorkspaceID,
		Creator:     d.Creator,
	}
}

func (d Descriptor) validate(i int) error {
	switch {
	case strings.TrimSpace(d.UUID) == "":
		return fmt.Errorf("descriptor %d: uuid is required", i)
	case strings.TrimSpace(d.Name) == "":
		return fmt.Errorf("descriptor %d: name is required", i)
	}
	return nil
}

// ReadMeta читает описания оркестраторов из директории пакета.
//
// Поддерживаемые формы документа: одно описание, список описаний или
// объект с ключом orchestrators. Пустой результат — ошибка.
func ReadMeta(dir string) ([]Descriptor, error) {
	data, name, err := readMetaFile(dir)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(name, ".json") {
		// табы допустимы в JSON, но не в отступах YAML
		data = []byte(strings.ReplaceAll(string(data), "\t", " "))
	}

	descs, err := ParseMeta(data)
	if err != nil {
		return nil, domain.WrapError(domain.CodeMalformedPackage, "parse "+name, err)
	}
	return descs, nil
}

// ParseMeta разбирает содержимое файла метаданных.
func ParseMeta(data []byte) ([]Descriptor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty metadata document")
	}

	node := doc.Content[0]
	if node.Kind == yaml.MappingNode {
		if list := mappingValue(node, "orchestrators"); list != nil {
			node = list
		}
	}

	var descs []Descriptor
	switch node.Kind {
	case yaml.MappingNode:
		var d Descriptor
		if err := node.Decode(&d); err != nil {
			return nil, err
		}
		descs = []Descriptor{d}
	case yaml.SequenceNode:
		if err := node.Decode(&descs); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unexpected metadata shape at line %d", node.Line)
	}

	if len(descs) == 0 {
		return nil, errors.New("no orchestrator descriptors")
	}
	for i, d := range descs {
		if err := d.validate(i); err != nil {
			return nil, err
		}
	}
	return descs, nil
}

func readMetaFile(dir string) ([]byte, string, error) {
	for _, name := range metaFileNames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, name, domain.WrapError(domain.CodeMalformedPackage, "read "+name, err)
		}
		return data, name, nil
	}
	return nil, "", domain.NewError(domain.CodeMalformedPackage, "package has no orc_meta file")
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
