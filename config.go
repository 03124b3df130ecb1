package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// defaultModels is the model roster used when none is configured. These are
// IDs for an OpenAI-compatible local endpoint such as vLLM or OpenRouter.
var defaultModels = []string{
	"meta-llama/llama-3-8b-instruct",
	"meta-llama/llama-3-13b-instruct",
	"mistralai/mistral-7b-instruct-v0.2",
	"deepseek-ai/deepseek-llm-7b-chat",
	"deepseek-ai/deepseek-llm-33b-chat",
	"qwen/qwen1.5-7b-chat",
	"qwen/qwen1.5-32b-chat",
	"gryphe/mythomax-l2-13b",
}

// AppConfig holds all simulation configuration. It is built once at startup
// and passed by value; nothing mutates it after loadConfig returns.
// Priority (lowest → highest): defaults < env vars < JSON config file < CLI flags.
type AppConfig struct {
	// Storage and diagnostics
	DB            string `json:"db"`             // sqlite connection string
	Dev           bool   `json:"dev"`            // dev mode: verbose logging
	DashboardAddr string `json:"dashboard_addr"` // HTTP listen address, empty disables the dashboard

	// Logging (extended diagnostics, off by default)
	LogOutputDir string `json:"log_output_dir"`
	LogPrompts   bool   `json:"log_prompts"`
	LogResponses bool   `json:"log_responses"`
	LogDB        bool   `json:"log_db"`
	LogDebug     bool   `json:"log_debug"`

	// Game setup
	NumGames               int      `json:"num_games"`
	PlayersPerGame         int      `json:"players_per_game"`
	MafiaCount             int      `json:"mafia_count"`
	DoctorCount            int      `json:"doctor_count"`
	MaxRounds              int      `json:"max_rounds"`
	Language               string   `json:"language"` // English | Spanish | French | Korean
	Models                 []string `json:"models"`
	UniqueModels           bool     `json:"unique_models"` // sample models without replacement
	Seed                   string   `json:"seed"`          // int64 as string, empty means time-seeded
	DiscussionHistoryLimit int      `json:"discussion_history_limit"`
	DiscussionGraph        bool     `json:"discussion_graph"` // feed villagers an extracted accusation graph
	CriticModel            string   `json:"critic_model"`     // empty disables the post-game critic review

	// Generator
	Provider    string `json:"provider"` // openai-compatible | openai | claude | gemini | groq | ollama
	APIBaseURL  string `json:"api_base_url"`
	APIKey      string `json:"api_key"`
	OllamaURL   string `json:"ollama_url"`
	GroqAPIKey  string `json:"groq_api_key"`
	Temperature string `json:"temperature"` // float 0-1 as string
	MaxTokens   int    `json:"max_tokens"`
	APITimeout  int    `json:"api_timeout"` // per-call timeout in seconds

	// Concurrency
	MaxWorkers int `json:"max_workers"` // games run concurrently, 1 means sequential
}

func (cfg AppConfig) toLogConfig() LogConfig {
	return LogConfig{
		OutputDir:    cfg.LogOutputDir,
		LogPrompts:   cfg.LogPrompts,
		LogResponses: cfg.LogResponses,
		LogDB:        cfg.LogDB,
		Debug:        cfg.LogDebug,
	}
}

func defaultConfig() AppConfig {
	return AppConfig{
		DB:                     "file:mafia.db?cache=shared",
		NumGames:               1,
		PlayersPerGame:         8,
		MafiaCount:             2,
		DoctorCount:            1,
		MaxRounds:              20,
		Language:               "English",
		Models:                 defaultModels,
		DiscussionHistoryLimit: 10,
		Provider:               "openai-compatible",
		APIBaseURL:             "http://localhost:8000/v1",
		OllamaURL:              "http://localhost:11434",
		MaxTokens:              400,
		APITimeout:             60,
		MaxWorkers:             1,
	}
}

// seedValue parses the configured seed. ok is false when no seed is set and
// each run should be time-seeded.
func (cfg AppConfig) seedValue() (seed int64, ok bool) {
	if cfg.Seed == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(cfg.Seed, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate rejects configurations that cannot produce a playable game.
// Setup defects are hard failures, not something to patch at runtime.
func (cfg AppConfig) Validate() error {
	if cfg.NumGames < 1 {
		return fmt.Errorf("num_games must be at least 1, got %d", cfg.NumGames)
	}
	if cfg.MafiaCount < 1 {
		return fmt.Errorf("mafia_count must be at least 1, got %d", cfg.MafiaCount)
	}
	if cfg.DoctorCount < 0 {
		return fmt.Errorf("doctor_count must not be negative, got %d", cfg.DoctorCount)
	}
	if cfg.MafiaCount+cfg.DoctorCount >= cfg.PlayersPerGame {
		return fmt.Errorf("players_per_game (%d) must exceed mafia_count + doctor_count (%d)",
			cfg.PlayersPerGame, cfg.MafiaCount+cfg.DoctorCount)
	}
	if cfg.PlayersPerGame > len(playerNamePool) {
		return fmt.Errorf("players_per_game (%d) exceeds the name pool size (%d)",
			cfg.PlayersPerGame, len(playerNamePool))
	}
	if cfg.MaxRounds < 1 {
		return fmt.Errorf("max_rounds must be at least 1, got %d", cfg.MaxRounds)
	}
	if len(cfg.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	if cfg.UniqueModels && cfg.PlayersPerGame > len(cfg.Models) {
		return fmt.Errorf("unique_models requires at least players_per_game (%d) models, got %d",
			cfg.PlayersPerGame, len(cfg.Models))
	}
	if !isSupportedLanguage(cfg.Language) {
		return fmt.Errorf("unsupported language %q (supported: %s)",
			cfg.Language, strings.Join(supportedLanguages, ", "))
	}
	if cfg.Seed != "" {
		if _, err := strconv.ParseInt(cfg.Seed, 10, 64); err != nil {
			return fmt.Errorf("seed must be an integer, got %q", cfg.Seed)
		}
	}
	if cfg.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", cfg.MaxWorkers)
	}
	if cfg.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be at least 1, got %d", cfg.MaxTokens)
	}
	return nil
}

// loadConfig builds a config by layering: defaults → env vars → JSON config file.
// CLI flag overrides are applied separately by flagValues.applyTo after flag.Parse.
func loadConfig(configPath string) AppConfig {
	cfg := defaultConfig()

	// Layer 1: env vars
	envStr := os.Getenv
	envBool := func(key string) (val bool, set bool) {
		v := os.Getenv(key)
		if v == "" {
			return false, false
		}
		return v == "1" || v == "true" || v == "yes", true
	}
	envInt := func(key string) (val int, set bool) {
		v := os.Getenv(key)
		if v == "" {
			return 0, false
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Config: invalid %s=%q: %v", key, v, err)
			return 0, false
		}
		return n, true
	}

	if v := envStr("DB"); v != "" {
		cfg.DB = v
	}
	if v, ok := envBool("DEV"); ok {
		cfg.Dev = v
	}
	if v := envStr("DASHBOARD_ADDR"); v != "" {
		cfg.DashboardAddr = v
	}
	if v := envStr("LOG_OUTPUT_DIR"); v != "" {
		cfg.LogOutputDir = v
	}
	if v, ok := envBool("LOG_PROMPTS"); ok {
		cfg.LogPrompts = v
	}
	if v, ok := envBool("LOG_RESPONSES"); ok {
		cfg.LogResponses = v
	}
	if v, ok := envBool("LOG_DB"); ok {
		cfg.LogDB = v
	}
	if v, ok := envBool("LOG_DEBUG"); ok {
		cfg.LogDebug = v
	}
	if v, ok := envInt("NUM_GAMES"); ok {
		cfg.NumGames = v
	}
	if v, ok := envInt("PLAYERS_PER_GAME"); ok {
		cfg.PlayersPerGame = v
	}
	if v, ok := envInt("MAFIA_COUNT"); ok {
		cfg.MafiaCount = v
	}
	if v, ok := envInt("DOCTOR_COUNT"); ok {
		cfg.DoctorCount = v
	}
	if v, ok := envInt("MAX_ROUNDS"); ok {
		cfg.MaxRounds = v
	}
	if v := envStr("GAME_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := envStr("MODELS"); v != "" {
		cfg.Models = splitModels(v)
	}
	if v, ok := envBool("UNIQUE_MODELS"); ok {
		cfg.UniqueModels = v
	}
	if v := envStr("RANDOM_SEED"); v != "" {
		cfg.Seed = v
	}
	if v, ok := envInt("DISCUSSION_HISTORY_LIMIT"); ok {
		cfg.DiscussionHistoryLimit = v
	}
	if v, ok := envBool("DISCUSSION_GRAPH"); ok {
		cfg.DiscussionGraph = v
	}
	if v := envStr("CRITIC_MODEL"); v != "" {
		cfg.CriticModel = v
	}
	if v := envStr("PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := envStr("API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := envStr("API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := envStr("OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := envStr("GROQ_API_KEY"); v != "" {
		cfg.GroqAPIKey = v
	}
	if v := envStr("TEMPERATURE"); v != "" {
		cfg.Temperature = v
	}
	if v, ok := envInt("MAX_OUTPUT_TOKENS"); ok {
		cfg.MaxTokens = v
	}
	if v, ok := envInt("API_TIMEOUT"); ok {
		cfg.APITimeout = v
	}
	if v, ok := envInt("MAX_WORKERS"); ok {
		cfg.MaxWorkers = v
	}

	// Layer 2: JSON config file. Only fields present in the file override env vars.
	if data, err := os.ReadFile(configPath); err == nil {
		var overlay map[string]json.RawMessage
		if err := json.Unmarshal(data, &overlay); err != nil {
			log.Printf("Config: failed to parse %s: %v", configPath, err)
		} else {
			applyJSONOverlay(&cfg, overlay)
			log.Printf("Config: loaded from %s", configPath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Config: failed to read %s: %v", configPath, err)
	}

	return cfg
}

func splitModels(s string) []string {
	var models []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}

// applyJSONOverlay only sets fields that are explicitly present in the JSON map.
func applyJSONOverlay(cfg *AppConfig, m map[string]json.RawMessage) {
	str := func(key string, dst *string) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := m[key]; ok {
			json.Unmarshal(v, dst)
		}
	}
	str("db", &cfg.DB)
	boolean("dev", &cfg.Dev)
	str("dashboard_addr", &cfg.DashboardAddr)
	str("log_output_dir", &cfg.LogOutputDir)
	boolean("log_prompts", &cfg.LogPrompts)
	boolean("log_responses", &cfg.LogResponses)
	boolean("log_db", &cfg.LogDB)
	boolean("log_debug", &cfg.LogDebug)
	integer("num_games", &cfg.NumGames)
	integer("players_per_game", &cfg.PlayersPerGame)
	integer("mafia_count", &cfg.MafiaCount)
	integer("doctor_count", &cfg.DoctorCount)
	integer("max_rounds", &cfg.MaxRounds)
	str("language", &cfg.Language)
	if v, ok := m["models"]; ok {
		var models []string
		if err := json.Unmarshal(v, &models); err == nil {
			cfg.Models = models
		}
	}
	boolean("unique_models", &cfg.UniqueModels)
	str("seed", &cfg.Seed)
	integer("discussion_history_limit", &cfg.DiscussionHistoryLimit)
	boolean("discussion_graph", &cfg.DiscussionGraph)
	str("critic_model", &cfg.CriticModel)
	str("provider", &cfg.Provider)
	str("api_base_url", &cfg.APIBaseURL)
	str("api_key", &cfg.APIKey)
	str("ollama_url", &cfg.OllamaURL)
	str("groq_api_key", &cfg.GroqAPIKey)
	str("temperature", &cfg.Temperature)
	integer("max_tokens", &cfg.MaxTokens)
	integer("api_timeout", &cfg.APITimeout)
	integer("max_workers", &cfg.MaxWorkers)
}

// flagValues holds pointers to all registered CLI flags.
type flagValues struct {
	configPath     *string
	db             *string
	dev            *bool
	dashboardAddr  *string
	logOutputDir   *string
	logPrompts     *bool
	logResponses   *bool
	logDB          *bool
	logDebug       *bool
	numGames       *int
	playersPerGame *int
	mafiaCount     *int
	doctorCount    *int
	maxRounds      *int
	language       *string
	models         *string
	uniqueModels   *bool
	seed           *string
	historyLimit   *int
	graph          *bool
	criticModel    *string
	provider       *string
	apiBaseURL     *string
	apiKey         *string
	ollamaURL      *string
	groqAPIKey     *string
	temperature    *string
	maxTokens      *int
	apiTimeout     *int
	maxWorkers     *int
}

// registerFlags registers all CLI flags and returns pointers to their values.
// Call flag.Parse() after this, then applyTo to layer them over the loaded config.
func registerFlags() flagValues {
	return flagValues{
		configPath:     flag.String("config", "config.json", "path to JSON config file"),
		db:             flag.String("db", "", "sqlite connection string"),
		dev:            flag.Bool("dev", false, "enable development mode (verbose logging)"),
		dashboardAddr:  flag.String("dashboard-addr", "", "dashboard HTTP listen address (e.g. :8080), empty disables"),
		logOutputDir:   flag.String("log-output-dir", "", "directory for extended log files"),
		logPrompts:     flag.Bool("log-prompts", false, "log full prompts sent to models"),
		logResponses:   flag.Bool("log-responses", false, "log raw model responses"),
		logDB:          flag.Bool("log-db", false, "log database writes"),
		logDebug:       flag.Bool("log-debug", false, "enable debug logging"),
		numGames:       flag.Int("games", 0, "number of games to simulate"),
		playersPerGame: flag.Int("players", 0, "players per game"),
		mafiaCount:     flag.Int("mafia", 0, "mafia players per game"),
		doctorCount:    flag.Int("doctors", -1, "doctor players per game"),
		maxRounds:      flag.Int("max-rounds", 0, "round limit before a forced decision"),
		language:       flag.String("language", "", "game language (English|Spanish|French|Korean)"),
		models:         flag.String("models", "", "comma-separated model IDs"),
		uniqueModels:   flag.Bool("unique-models", false, "sample models without replacement"),
		seed:           flag.String("seed", "", "base random seed for reproducible runs"),
		historyLimit:   flag.Int("history-limit", 0, "max discussion messages shown in prompts"),
		graph:          flag.Bool("graph", false, "extract an accusation graph for villager prompts"),
		criticModel:    flag.String("critic-model", "", "model for the post-game critic review"),
		provider:       flag.String("provider", "", "LLM provider (openai-compatible|openai|claude|gemini|groq|ollama)"),
		apiBaseURL:     flag.String("api-base-url", "", "base URL for openai-compatible provider"),
		apiKey:         flag.String("api-key", "", "API key for openai-compatible provider"),
		ollamaURL:      flag.String("ollama-url", "", "Ollama server URL"),
		groqAPIKey:     flag.String("groq-api-key", "", "Groq API key"),
		temperature:    flag.String("temperature", "", "sampling temperature 0-1"),
		maxTokens:      flag.Int("max-tokens", 0, "max output tokens per model call"),
		apiTimeout:     flag.Int("api-timeout", 0, "per-call timeout in seconds"),
		maxWorkers:     flag.Int("max-workers", 0, "games run concurrently"),
	}
}

// applyTo overlays any CLI flags that were explicitly set onto cfg.
// Flags that were not passed on the command line are ignored (env/JSON values win).
func (fv flagValues) applyTo(cfg *AppConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DB = *fv.db
		case "dev":
			cfg.Dev = *fv.dev
		case "dashboard-addr":
			cfg.DashboardAddr = *fv.dashboardAddr
		case "log-output-dir":
			cfg.LogOutputDir = *fv.logOutputDir
		case "log-prompts":
			cfg.LogPrompts = *fv.logPrompts
		case "log-responses":
			cfg.LogResponses = *fv.logResponses
		case "log-db":
			cfg.LogDB = *fv.logDB
		case "log-debug":
			cfg.LogDebug = *fv.logDebug
		case "games":
			cfg.NumGames = *fv.numGames
		case "players":
			cfg.PlayersPerGame = *fv.playersPerGame
		case "mafia":
			cfg.MafiaCount = *fv.mafiaCount
		case "doctors":
			cfg.DoctorCount = *fv.doctorCount
		case "max-rounds":
			cfg.MaxRounds = *fv.maxRounds
		case "language":
			cfg.Language = *fv.language
		case "models":
			cfg.Models = splitModels(*fv.models)
		case "unique-models":
			cfg.UniqueModels = *fv.uniqueModels
		case "seed":
			cfg.Seed = *fv.seed
		case "history-limit":
			cfg.DiscussionHistoryLimit = *fv.historyLimit
		case "graph":
			cfg.DiscussionGraph = *fv.graph
		case "critic-model":
			cfg.CriticModel = *fv.criticModel
		case "provider":
			cfg.Provider = *fv.provider
		case "api-base-url":
			cfg.APIBaseURL = *fv.apiBaseURL
		case "api-key":
			cfg.APIKey = *fv.apiKey
		case "ollama-url":
			cfg.OllamaURL = *fv.ollamaURL
		case "groq-api-key":
			cfg.GroqAPIKey = *fv.groqAPIKey
		case "temperature":
			cfg.Temperature = *fv.temperature
		case "max-tokens":
			cfg.MaxTokens = *fv.maxTokens
		case "api-timeout":
			cfg.APITimeout = *fv.apiTimeout
		case "max-workers":
			cfg.MaxWorkers = *fv.maxWorkers
		}
	})
}
