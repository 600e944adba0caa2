package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Settings struct {
	Server     ServerSettings
	Log        LogSettings
	Redis      RedisSettings
	Registry   RegistrySettings
	Vector     VectorSettings
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Grobid     GrobidSettings
	OCR        OCRSettings
	Chunking   ChunkingSettings
	Retrieval  RetrievalSettings
	Classifier ClassifierSettings
}

type ServerSettings struct {
	ListenAddr   string
	AuthToken    string
	NoAuthBypass bool
	UploadDir    string
	MaxUploadMB  int
	RateLimit    bool
}

type LogSettings struct {
	Level string
	JSON  bool
}

type RedisSettings struct {
	Addr     string
	Password string
}

type RegistrySettings struct {
	Backend     string
	PostgresDSN string
	SQLitePath  string
}

type VectorSettings struct {
	Backend      string
	Collection   string
	QdrantHost   string
	QdrantPort   int
	QdrantTLS    bool
	QdrantAPIKey string
	PostgresDSN  string
	Cache        bool
}

type EmbeddingSettings struct {
	Provider  string
	Model     string
	Dimension int
	APIKey    string
	OllamaURL string
	BatchSize int
}

type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Referer     string
	AppTitle    string
	Temperature float32
	MaxTokens   int
}

type GrobidSettings struct {
	Enabled bool
	URL     string
}

type OCRSettings struct {
	Enabled          bool
	Language         string
	Scale            float64
	TesseractBinary  string
	RasterizerBinary string
}

type ChunkingSettings struct {
	StandardSize    int
	StandardOverlap int
	ResearchSize    int
	ResearchOverlap int
}

type RetrievalSettings struct {
	TopN          int
	MaxDistance   float64
	FallbackCount int
	HistoryTurns  int
	Metric        string
}

type ClassifierSettings struct {
	SamplePages int
}

var (
	current     *Settings
	currentErr  error
	currentOnce sync.Once
)

// Current returns the process-wide settings, loading them on first use.
func Current() *Settings {
	currentOnce.Do(func() {
		current, currentErr = Load()
		if currentErr != nil {
			current = Defaults()
		}
	})
	return current
}

// Use replaces the process-wide settings. Call it before anything reads Current.
func Use(s *Settings) {
	currentOnce.Do(func() {})
	current, currentErr = s, nil
}

// LoadError reports why Current fell back to defaults, if it did.
func LoadError() error {
	Current()
	return currentErr
}

// Load reads .env, an optional docmind.yaml and DOCMIND_* environment variables on top of the defaults.
func Load(configPaths ...string) (*Settings, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("docmind")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Defaults returns the compile-time defaults without reading the environment.
func Defaults() *Settings {
	v := viper.New()
	setDefaults(v)
	var s Settings
	_ = v.Unmarshal(&s)
	return &s
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listenAddr", ServerListenAddr)
	v.SetDefault("server.authToken", "")
	v.SetDefault("server.noAuthBypass", NoAuthBypass)
	v.SetDefault("server.uploadDir", UploadDir)
	v.SetDefault("server.maxUploadMB", MaxUploadSizeMB)
	v.SetDefault("server.rateLimit", true)

	v.SetDefault("log.level", "debug")
	v.SetDefault("log.json", IS_PROD)

	v.SetDefault("redis.addr", RedisAddr)
	v.SetDefault("redis.password", "")

	v.SetDefault("registry.backend", RegistryBackend)
	v.SetDefault("registry.postgresDSN", PostgresDSN)
	v.SetDefault("registry.sqlitePath", SQLitePath)

	v.SetDefault("vector.backend", VectorBackend)
	v.SetDefault("vector.collection", EmbeddingDBName)
	v.SetDefault("vector.qdrantHost", QdrantHost)
	v.SetDefault("vector.qdrantPort", QdrantGrpcPort)
	v.SetDefault("vector.qdrantTLS", QdrantUseTLS)
	v.SetDefault("vector.qdrantAPIKey", "")
	v.SetDefault("vector.postgresDSN", PostgresDSN)
	v.SetDefault("vector.cache", true)

	v.SetDefault("embedding.provider", EmbeddingProvider)
	v.SetDefault("embedding.model", GoogleEmbeddingModel)
	v.SetDefault("embedding.dimension", int(EmbeddingOutputDimensionality))
	v.SetDefault("embedding.apiKey", "")
	v.SetDefault("embedding.ollamaURL", OllamaServerURL)
	v.SetDefault("embedding.batchSize", EmbeddingBatchSize)

	v.SetDefault("llm.provider", LLMProvider)
	v.SetDefault("llm.model", GeminiModelName)
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.baseURL", OpenRouterBaseURL)
	v.SetDefault("llm.referer", OpenRouterReferer)
	v.SetDefault("llm.appTitle", OpenRouterAppTitle)
	v.SetDefault("llm.temperature", ModelTemperature)
	v.SetDefault("llm.maxTokens", ModelMaxTokens)

	v.SetDefault("grobid.enabled", GrobidEnabled)
	v.SetDefault("grobid.url", GrobidURL)

	v.SetDefault("ocr.enabled", OCREnabled)
	v.SetDefault("ocr.language", OCRLanguage)
	v.SetDefault("ocr.scale", OCRRenderScale)
	v.SetDefault("ocr.tesseractBinary", OCRTesseractBinary)
	v.SetDefault("ocr.rasterizerBinary", OCRRasterizerBinary)

	v.SetDefault("chunking.standardSize", StandardChunkSize)
	v.SetDefault("chunking.standardOverlap", StandardChunkOverlap)
	v.SetDefault("chunking.researchSize", ResearchChunkSize)
	v.SetDefault("chunking.researchOverlap", ResearchChunkOverlap)

	v.SetDefault("retrieval.topN", RetrievalTopN)
	v.SetDefault("retrieval.maxDistance", RetrievalMaxDistance)
	v.SetDefault("retrieval.fallbackCount", RetrievalFallbackCount)
	v.SetDefault("retrieval.historyTurns", RetrievalHistoryTurns)
	v.SetDefault("retrieval.metric", DistanceMetric)

	v.SetDefault("classifier.samplePages", ClassifierSamplePages)
}

var (
	validVectorBackends    = []string{"qdrant", "pgvector", "memory"}
	validRegistryBackends  = []string{"redis", "postgres", "sqlite", "memory"}
	validEmbeddingBackends = []string{"gemini", "openai", "ollama", "local"}
	validLLMProviders      = []string{"gemini", "openrouter"}
	validMetrics           = []string{"l2_squared", "cosine", "euclidean"}
)

// Validate reports every invalid setting at once.
func (s *Settings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(oneOf(s.Vector.Backend, validVectorBackends), "vector.backend %q must be one of %v", s.Vector.Backend, validVectorBackends)
	check(oneOf(s.Registry.Backend, validRegistryBackends), "registry.backend %q must be one of %v", s.Registry.Backend, validRegistryBackends)
	check(oneOf(s.Embedding.Provider, validEmbeddingBackends), "embedding.provider %q must be one of %v", s.Embedding.Provider, validEmbeddingBackends)
	check(oneOf(s.LLM.Provider, validLLMProviders), "llm.provider %q must be one of %v", s.LLM.Provider, validLLMProviders)
	check(oneOf(s.Retrieval.Metric, validMetrics), "retrieval.metric %q must be one of %v", s.Retrieval.Metric, validMetrics)

	check(s.Embedding.Dimension > 0, "embedding.dimension must be positive")
	check(s.Embedding.BatchSize > 0, "embedding.batchSize must be positive")
	check(s.Chunking.StandardSize > 0 && s.Chunking.StandardOverlap >= 0 && s.Chunking.StandardOverlap < s.Chunking.StandardSize,
		"chunking.standard overlap %d must be smaller than size %d", s.Chunking.StandardOverlap, s.Chunking.StandardSize)
	check(s.Chunking.ResearchSize > 0 && s.Chunking.ResearchOverlap >= 0 && s.Chunking.ResearchOverlap < s.Chunking.ResearchSize,
		"chunking.research overlap %d must be smaller than size %d", s.Chunking.ResearchOverlap, s.Chunking.ResearchSize)
	check(s.Retrieval.TopN > 0, "retrieval.topN must be positive")
	check(s.Retrieval.MaxDistance > 0, "retrieval.maxDistance must be positive")
	check(s.Retrieval.FallbackCount >= 0, "retrieval.fallbackCount must not be negative")
	check(s.Classifier.SamplePages >= 3, "classifier.samplePages must be at least 3")
	check(s.OCR.Scale > 0, "ocr.scale must be positive")
	check(s.Server.MaxUploadMB > 0, "server.maxUploadMB must be positive")
	check(s.LLM.MaxTokens > 0, "llm.maxTokens must be positive")

	return errors.Join(errs...)
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
