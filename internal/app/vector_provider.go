package app

import (
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/memvec"
	"github.com/yungbote/superconnector-backend/internal/platform/pinecone"
	"github.com/yungbote/superconnector-backend/internal/platform/qdrant"
	"github.com/yungbote/superconnector-backend/internal/platform/vectorindex"
)

type VectorProvider string

const (
	VectorProviderMemory   VectorProvider = "memory"
	VectorProviderPinecone VectorProvider = "pinecone"
	VectorProviderQdrant   VectorProvider = "qdrant"
)

var (
	newPineconeClient   = pinecone.NewClient
	newPineconeIndex    = pinecone.NewIndex
	newQdrantIndex      = qdrant.NewIndex
	resolveQdrantConfig = qdrant.ResolveConfigFromEnv
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidProvider      VectorProviderBootstrapErrorCode = "invalid_provider"
	VectorProviderBootstrapErrorMissingQdrantURL     VectorProviderBootstrapErrorCode = "missing_qdrant_url"
	VectorProviderBootstrapErrorInvalidQdrantURL     VectorProviderBootstrapErrorCode = "invalid_qdrant_url"
	VectorProviderBootstrapErrorMissingQdrantColl    VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorInvalidQdrantVector  VectorProviderBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderBootstrapErrorConnectFailed        VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed   VectorProviderBootstrapErrorCode = "provider_init_failed"
	VectorProviderBootstrapCodeDisabledMissingAPIKey VectorProviderBootstrapErrorCode = "disabled_missing_api_key"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func normalizeVectorProvider(raw string) string {
	v := strings.TrimSpace(strings.ToLower(raw))
	if v == "" || v == "memvec" || v == "inmemory" {
		return string(VectorProviderMemory)
	}
	return v
}

// resolveVectorIndex builds the configured index. A pinecone selection with
// no API key degrades to the in-process index so local runs keep matching.
// The returned provider name is the one actually in use.
func resolveVectorIndex(log *logger.Logger, cfg Config) (vectorindex.Index, string, error) {
	provider := normalizeVectorProvider(cfg.VectorProvider)

	switch provider {
	case string(VectorProviderMemory):
		log.Info("Selecting vector index provider", "provider", provider)
		return instrumentVectorIndex(provider, memvec.New(log)), provider, nil

	case string(VectorProviderQdrant):
		qcfg, err := resolveQdrantConfig()
		if err != nil {
			return nil, provider, bootstrapFailure(log, provider, err)
		}
		log.Info(
			"Selecting vector index provider",
			"provider", provider,
			"qdrant_url", qcfg.URL,
			"qdrant_collection", qcfg.Collection,
			"qdrant_vector_dim", qcfg.VectorDim,
		)
		idx, err := newQdrantIndex(log, qcfg)
		if err != nil {
			return nil, provider, bootstrapFailure(log, provider, err)
		}
		return instrumentVectorIndex(provider, idx), provider, nil

	case string(VectorProviderPinecone):
		log.Info(
			"Selecting vector index provider",
			"provider", provider,
			"pinecone_index", cfg.Pinecone.IndexName,
			"pinecone_namespace", cfg.Pinecone.Namespace,
		)
		if strings.TrimSpace(cfg.Pinecone.Client.APIKey) == "" {
			log.Warn(
				"PINECONE_API_KEY not set; falling back to in-memory vector index",
				"error_code", VectorProviderBootstrapCodeDisabledMissingAPIKey,
			)
			fallback := string(VectorProviderMemory)
			return instrumentVectorIndex(fallback, memvec.New(log)), fallback, nil
		}
		pc, err := newPineconeClient(log, cfg.Pinecone.Client)
		if err != nil {
			return nil, provider, bootstrapFailure(log, provider, err)
		}
		idx, err := newPineconeIndex(log, pc, cfg.Pinecone)
		if err != nil {
			return nil, provider, bootstrapFailure(log, provider, err)
		}
		return instrumentVectorIndex(provider, idx), provider, nil

	default:
		err := &VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported vector provider %q", provider),
		}
		log.Error("Vector index provider selection failed", "provider", provider, "error_code", err.Code, "error", err)
		return nil, provider, err
	}
}

func bootstrapFailure(log *logger.Logger, provider string, err error) error {
	classified := classifyVectorProviderBootstrapError(provider, err)
	log.Error(
		"Vector index provider bootstrap failed",
		"provider", provider,
		"error_code", vectorProviderBootstrapErrorCode(classified),
		"error", classified,
	)
	return classified
}

func classifyVectorProviderBootstrapError(provider string, err error) error {
	code := VectorProviderBootstrapErrorProviderInitFailed

	var urlErr *neturl.Error
	var netErr net.Error
	var cfgErr *qdrant.ConfigError
	errLower := strings.ToLower(err.Error())
	switch {
	case errors.As(err, &cfgErr):
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			code = VectorProviderBootstrapErrorMissingQdrantURL
		case qdrant.ConfigErrorInvalidURL:
			code = VectorProviderBootstrapErrorInvalidQdrantURL
		case qdrant.ConfigErrorMissingCollection:
			code = VectorProviderBootstrapErrorMissingQdrantColl
		case qdrant.ConfigErrorInvalidVectorDim:
			code = VectorProviderBootstrapErrorInvalidQdrantVector
		}
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		code = VectorProviderBootstrapErrorConnectFailed
	case strings.Contains(errLower, "connection refused"):
		code = VectorProviderBootstrapErrorConnectFailed
	}

	return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr != nil {
		return bootstrapErr.Code
	}
	return VectorProviderBootstrapErrorProviderInitFailed
}
