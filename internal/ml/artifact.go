package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Kind names the classifier family an artifact holds.
type Kind string

const (
	KindLogistic Kind = "logistic_regression"
	KindTree     Kind = "decision_tree"
)

// Artifact is the serialized form of a fitted classifier: metadata, the
// preprocessing it was trained behind, and the family-specific parameters.
type Artifact struct {
	Name         string          `json:"name" yaml:"name"`
	Version      string          `json:"version,omitempty" yaml:"version,omitempty"`
	TrainedAt    string          `json:"trained_at,omitempty" yaml:"trained_at,omitempty"`
	Kind         Kind            `json:"kind" yaml:"kind"`
	Preprocessor Preprocessor    `json:"preprocessor" yaml:"preprocessor"`
	Logistic     *LogisticParams `json:"logistic,omitempty" yaml:"logistic,omitempty"`
	Tree         *TreeParams     `json:"tree,omitempty" yaml:"tree,omitempty"`
}

// ArtifactFile describes the file an artifact was read from.
type ArtifactFile struct {
	Path    string
	SHA256  string
	ModTime time.Time
}

const artifactSchemaJSON = `{
  "type": "object",
  "required": ["name", "kind", "preprocessor"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string"},
    "trained_at": {"type": "string"},
    "kind": {"enum": ["logistic_regression", "decision_tree"]},
    "preprocessor": {
      "type": "object",
      "properties": {
        "numeric": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["column"],
            "properties": {
              "column": {"type": "string"},
              "mean": {"type": "number"},
              "scale": {"type": "number", "minimum": 0}
            }
          }
        },
        "categorical": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["column", "categories"],
            "properties": {
              "column": {"type": "string"},
              "categories": {"type": "array", "minItems": 1, "items": {"type": "string"}}
            }
          }
        }
      }
    },
    "logistic": {
      "type": "object",
      "required": ["coefficients", "intercept"],
      "properties": {
        "coefficients": {"type": "array", "minItems": 1, "items": {"type": "number"}},
        "intercept": {"type": "number"}
      }
    },
    "tree": {
      "type": "object",
      "required": ["nodes"],
      "properties": {
        "nodes": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["left", "right"],
            "properties": {
              "feature": {"type": "integer"},
              "threshold": {"type": "number"},
              "left": {"type": "integer", "minimum": -1},
              "right": {"type": "integer", "minimum": -1},
              "value": {"type": "array", "items": {"type": "number", "minimum": 0}}
            }
          }
        }
      }
    }
  }
}`

var artifactSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(artifactSchemaJSON))
})

// ParseArtifact decodes and schema-checks an artifact document. format is
// "json" or "yaml".
func ParseArtifact(data []byte, format string) (*Artifact, error) {
	var (
		doc gojsonschema.JSONLoader
		art Artifact
	)
	switch format {
	case "json":
		doc = gojsonschema.NewBytesLoader(data)
	case "yaml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml artifact: %w", err)
		}
		doc = gojsonschema.NewGoLoader(raw)
	default:
		return nil, fmt.Errorf("unsupported artifact format %q", format)
	}

	schema, err := artifactSchema()
	if err != nil {
		return nil, fmt.Errorf("compile artifact schema: %w", err)
	}
	result, err := schema.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validate artifact: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("artifact does not match schema: %s", strings.Join(errs, "; "))
	}

	if format == "json" {
		err = json.Unmarshal(data, &art)
	} else {
		err = yaml.Unmarshal(data, &art)
	}
	if err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &art, nil
}

// ReadArtifact loads an artifact file. The format follows the extension:
// .json, or .yaml/.yml.
func ReadArtifact(path string) (*Artifact, ArtifactFile, error) {
	file := ArtifactFile{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return nil, file, fmt.Errorf("stat artifact: %w", err)
	}
	file.ModTime = info.ModTime()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, file, fmt.Errorf("read artifact: %w", err)
	}
	sum := sha256.Sum256(data)
	file.SHA256 = hex.EncodeToString(sum[:])

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = "json"
	case ".yaml", ".yml":
		format = "yaml"
	default:
		return nil, file, fmt.Errorf("unsupported artifact extension %q", filepath.Ext(path))
	}

	art, err := ParseArtifact(data, format)
	if err != nil {
		return nil, file, err
	}
	return art, file, nil
}

// Build constructs the classifier the artifact describes.
func (a *Artifact) Build() (Classifier, error) {
	switch a.Kind {
	case KindLogistic:
		if a.Logistic == nil {
			return nil, fmt.Errorf("artifact %s: kind %s requires logistic parameters", a.Name, a.Kind)
		}
		m, err := NewLogisticModel(a.Name, a.Preprocessor, *a.Logistic)
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", a.Name, err)
		}
		return m, nil
	case KindTree:
		if a.Tree == nil {
			return nil, fmt.Errorf("artifact %s: kind %s requires tree parameters", a.Name, a.Kind)
		}
		m, err := NewTreeModel(a.Name, a.Preprocessor, *a.Tree)
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", a.Name, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("artifact %s: unknown kind %q", a.Name, a.Kind)
	}
}
