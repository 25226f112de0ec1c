package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --bucket
// on both "dynrag ingest" and "dynrag serve").
type Flag struct {
	// Name is the long flag name (e.g. "bucket").
	Name string

	// Shorthand is the one-letter short flag (e.g. "b"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "source.bucket").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddIntFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagSourceProvider  = "source-provider"
	FlagBucket          = "bucket"
	FlagKey             = "key"
	FlagRegion          = "region"
	FlagSourceRoot      = "source-root"
	FlagDatabaseProv    = "database-provider"
	FlagDatabaseHost    = "database-host"
	FlagDatabasePort    = "database-port"
	FlagDatabaseName    = "database-name"
	FlagDatabaseTarget  = "database-target"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagLLMProvider     = "llm-provider"
	FlagLLMTarget       = "llm-target"
	FlagLLMModel        = "llm-model"
	FlagTopK            = "top-k"
	FlagChunkSize       = "chunk-size"
	FlagChunkOverlap    = "chunk-overlap"
	FlagEventStreamProv = "event-stream-provider"
	FlagAPIListen       = "listen"
)

// Flags is the registry shared by every dynrag command.
var Flags = FlagSet{
	FlagSourceProvider:  {Name: "source-provider", ViperKey: "source.provider", Description: "Document source (s3, file)"},
	FlagBucket:          {Name: "bucket", Shorthand: "b", ViperKey: "source.bucket", Description: "Bucket holding the documents"},
	FlagKey:             {Name: "key", Shorthand: "k", ViperKey: "source.key", Description: "Object key or prefix to ingest"},
	FlagRegion:          {Name: "region", ViperKey: "source.region", Description: "AWS region of the bucket"},
	FlagSourceRoot:      {Name: "source-root", ViperKey: "source.root", Description: "Directory holding buckets for the file source"},
	FlagDatabaseProv:    {Name: "database-provider", ViperKey: "database.provider", Description: "Vector store (pgvector, qdrant, sqlite, memory)"},
	FlagDatabaseHost:    {Name: "database-host", ViperKey: "database.host", Description: "PostgreSQL host"},
	FlagDatabasePort:    {Name: "database-port", ViperKey: "database.port", Description: "PostgreSQL port"},
	FlagDatabaseName:    {Name: "database-name", ViperKey: "database.name", Description: "PostgreSQL database name"},
	FlagDatabaseTarget:  {Name: "database-target", ViperKey: "database.target", Description: "Qdrant address or SQLite path"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (openai, ollama)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensions"},
	FlagLLMProvider:     {Name: "llm-provider", ViperKey: "llm.provider", Description: "Answer model provider (openai, ollama)"},
	FlagLLMTarget:       {Name: "llm-target", ViperKey: "llm.target", Description: "Answer model provider URL"},
	FlagLLMModel:        {Name: "llm-model", ViperKey: "llm.model", Description: "Answer model"},
	FlagTopK:            {Name: "top-k", ViperKey: "index.top_k", Description: "Passages retrieved per question"},
	FlagChunkSize:       {Name: "chunk-size", ViperKey: "chunk.size", Description: "Maximum chunk length in characters"},
	FlagChunkOverlap:    {Name: "chunk-overlap", ViperKey: "chunk.overlap", Description: "Characters repeated between chunks"},
	FlagEventStreamProv: {Name: "event-stream-provider", ViperKey: "event_stream.provider", Description: "Ingestion event stream (none, kafka, nats)"},
	FlagAPIListen:       {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}
