package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Validate())

	assert.Equal(t, ServerListenAddr, s.Server.ListenAddr)
	assert.Equal(t, EmbeddingDBName, s.Vector.Collection)
	assert.Equal(t, 1000, s.Chunking.StandardSize)
	assert.Equal(t, 150, s.Chunking.ResearchOverlap)
	assert.Equal(t, 5, s.Retrieval.TopN)
	assert.InDelta(t, 1.5, s.Retrieval.MaxDistance, 1e-9)
	assert.Equal(t, "cosine", s.Retrieval.Metric)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DOCMIND_RETRIEVAL_METRIC", "l2_squared")
	t.Setenv("DOCMIND_VECTOR_BACKEND", "memory")
	t.Setenv("DOCMIND_EMBEDDING_DIMENSION", "384")

	s, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "l2_squared", s.Retrieval.Metric)
	assert.Equal(t, "memory", s.Vector.Backend)
	assert.Equal(t, 384, s.Embedding.Dimension)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	s := Defaults()
	s.Retrieval.Metric = "manhattan"
	s.Vector.Backend = "chroma"
	s.Chunking.StandardOverlap = s.Chunking.StandardSize

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval.metric")
	assert.Contains(t, err.Error(), "vector.backend")
	assert.Contains(t, err.Error(), "chunking.standard")
}
