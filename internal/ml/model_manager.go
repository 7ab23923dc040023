package ml

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Model slots. Used as metric labels and in unavailable errors.
const (
	ModelLogistic = "logistic"
	ModelTree     = "tree"
)

// ModelPaths locates the two artifacts.
type ModelPaths struct {
	Logistic string
	Tree     string
}

// LoadStatus records the outcome of loading one model slot.
type LoadStatus struct {
	Model     string    `json:"model"`
	Path      string    `json:"path"`
	Loaded    bool      `json:"loaded"`
	Error     string    `json:"error,omitempty"`
	Name      string    `json:"name,omitempty"`
	Version   string    `json:"version,omitempty"`
	Kind      Kind      `json:"kind,omitempty"`
	TrainedAt string    `json:"trained_at,omitempty"`
	SHA256    string    `json:"sha256,omitempty"`
	ModTime   time.Time `json:"mod_time"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Models is the immutable pair of classifiers shared by all requests.
// A nil classifier means that slot failed to load.
type Models struct {
	Logistic Classifier
	Tree     Classifier
	status   []LoadStatus
}

// NewModels wraps already constructed classifiers.
func NewModels(logistic, tree Classifier) *Models {
	now := time.Now()
	m := &Models{Logistic: logistic, Tree: tree}
	for _, slot := range []struct {
		name string
		clf  Classifier
	}{{ModelLogistic, logistic}, {ModelTree, tree}} {
		st := LoadStatus{Model: slot.name, Loaded: slot.clf != nil, LoadedAt: now}
		if slot.clf != nil {
			st.Name = slot.clf.Name()
		} else {
			st.Error = "not provided"
		}
		m.status = append(m.status, st)
	}
	return m
}

// LoadModels reads both artifacts. A slot that fails to load is logged with
// its reason and left nil; the process keeps running and scoring reports the
// model as unavailable.
func LoadModels(paths ModelPaths, metrics MetricsInterface) *Models {
	m := &Models{}
	var st LoadStatus
	m.Logistic, st = loadSlot(ModelLogistic, paths.Logistic, KindLogistic, metrics)
	m.status = append(m.status, st)
	m.Tree, st = loadSlot(ModelTree, paths.Tree, KindTree, metrics)
	m.status = append(m.status, st)
	return m
}

func loadSlot(slot, path string, want Kind, metrics MetricsInterface) (Classifier, LoadStatus) {
	st := LoadStatus{Model: slot, Path: path, LoadedAt: time.Now()}

	clf, art, file, err := loadClassifier(path, want)
	st.SHA256 = file.SHA256
	st.ModTime = file.ModTime
	if art != nil {
		st.Name = art.Name
		st.Version = art.Version
		st.Kind = art.Kind
		st.TrainedAt = art.TrainedAt
	}
	if err != nil {
		st.Error = err.Error()
		log.Error().Err(err).Str("model", slot).Str("model_path", path).Msg("Model failed to load")
		if metrics != nil {
			metrics.ModelLoadedSet(slot, false)
		}
		return nil, st
	}

	st.Loaded = true
	log.Info().
		Str("model", slot).
		Str("model_path", path).
		Str("name", art.Name).
		Str("version", art.Version).
		Str("sha256", file.SHA256).
		Msg("Model loaded")

	if metrics != nil {
		metrics.ModelLoadedSet(slot, true)
		if !file.ModTime.IsZero() {
			metrics.ModelAgeSet(slot, time.Since(file.ModTime).Seconds())
		}
	}
	return clf, st
}

func loadClassifier(path string, want Kind) (Classifier, *Artifact, ArtifactFile, error) {
	if path == "" {
		return nil, nil, ArtifactFile{}, fmt.Errorf("no artifact path configured")
	}
	art, file, err := ReadArtifact(path)
	if err != nil {
		return nil, nil, file, err
	}
	if art.Kind != want {
		return nil, art, file, fmt.Errorf("artifact %s has kind %s, expected %s", art.Name, art.Kind, want)
	}
	clf, err := art.Build()
	if err != nil {
		return nil, art, file, err
	}
	return clf, art, file, nil
}

// Status returns the load outcome of each slot, logistic first.
func (m *Models) Status() []LoadStatus {
	if m == nil {
		return nil
	}
	out := make([]LoadStatus, len(m.status))
	copy(out, m.status)
	return out
}

// Ready reports whether both classifiers are loaded.
func (m *Models) Ready() bool {
	return m != nil && m.Logistic != nil && m.Tree != nil
}

// ResolveModelDir returns dir when set. Otherwise it looks for a "models"
// directory next to the executable and then under the working directory,
// returning the working-directory candidate when neither exists.
func ResolveModelDir(dir string) string {
	if dir != "" {
		return dir
	}

	var candidates []string
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), "models"))
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cwdModels := filepath.Join(cwd, "models")
	candidates = append(candidates, cwdModels)

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			log.Debug().Str("model_dir", c).Msg("Using model directory")
			return c
		}
	}
	return cwdModels
}
