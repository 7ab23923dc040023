package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModels(t *testing.T) {
	dir := t.TempDir()
	paths := ModelPaths{
		Logistic: writeArtifact(t, dir, "loan_logistic_model.json", creditLogistic()),
		Tree:     writeArtifact(t, dir, "loan_tree_model.json", creditTree()),
	}
	metrics := NewMockMetrics()

	models := LoadModels(paths, metrics)
	require.True(t, models.Ready())
	assert.Equal(t, "loan_logistic_model", models.Logistic.Name())
	assert.Equal(t, "loan_tree_model", models.Tree.Name())

	status := models.Status()
	require.Len(t, status, 2)
	assert.Equal(t, ModelLogistic, status[0].Model)
	assert.True(t, status[0].Loaded)
	assert.Equal(t, KindLogistic, status[0].Kind)
	assert.Equal(t, "test", status[0].Version)
	assert.Len(t, status[0].SHA256, 64)
	assert.Empty(t, status[0].Error)
	assert.Equal(t, ModelTree, status[1].Model)
	assert.True(t, status[1].Loaded)

	assert.True(t, metrics.loaded[ModelLogistic])
	assert.True(t, metrics.loaded[ModelTree])
	assert.Contains(t, metrics.modelAge, ModelLogistic)
}

func TestLoadModels_OneMissing(t *testing.T) {
	dir := t.TempDir()
	paths := ModelPaths{
		Logistic: writeArtifact(t, dir, "loan_logistic_model.json", creditLogistic()),
		Tree:     filepath.Join(dir, "loan_tree_model.json"),
	}
	metrics := NewMockMetrics()

	models := LoadModels(paths, metrics)
	assert.False(t, models.Ready())
	assert.NotNil(t, models.Logistic)
	assert.Nil(t, models.Tree)

	status := models.Status()
	assert.False(t, status[1].Loaded)
	assert.NotEmpty(t, status[1].Error)
	assert.Equal(t, paths.Tree, status[1].Path)
	assert.False(t, metrics.loaded[ModelTree])

	scorer := NewScorer(models, PolicyAveraged, metrics)
	_, err := scorer.Score(sampleRow(t))
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestLoadModels_KindMismatch(t *testing.T) {
	dir := t.TempDir()
	paths := ModelPaths{
		Logistic: writeArtifact(t, dir, "swapped_logistic.json", creditTree()),
		Tree:     writeArtifact(t, dir, "swapped_tree.json", creditLogistic()),
	}

	models := LoadModels(paths, nil)
	assert.Nil(t, models.Logistic)
	assert.Nil(t, models.Tree)
	for _, st := range models.Status() {
		assert.Contains(t, st.Error, "expected")
		assert.NotEmpty(t, st.Name, "metadata is kept for diagnosis")
	}
}

func TestLoadModels_CorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "loan_logistic_model.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o600))

	models := LoadModels(ModelPaths{Logistic: corrupt}, nil)
	assert.Nil(t, models.Logistic)
	assert.Nil(t, models.Tree)
	assert.Equal(t, "no artifact path configured", models.Status()[1].Error)
}

func TestNewModels_Status(t *testing.T) {
	models := NewModels(&stubClassifier{name: "lr"}, nil)
	status := models.Status()
	require.Len(t, status, 2)
	assert.True(t, status[0].Loaded)
	assert.Equal(t, "lr", status[0].Name)
	assert.False(t, status[1].Loaded)

	status[0].Loaded = false
	assert.True(t, models.Status()[0].Loaded, "Status returns a copy")

	var nilModels *Models
	assert.Nil(t, nilModels.Status())
	assert.False(t, nilModels.Ready())
}

func TestResolveModelDir(t *testing.T) {
	assert.Equal(t, "/srv/models", ResolveModelDir("/srv/models"))

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "models"), 0o755))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	got := ResolveModelDir("")
	assert.Equal(t, "models", filepath.Base(got))
}
