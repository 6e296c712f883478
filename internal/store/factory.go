package store

import "fmt"

// New creates a Store from cfg, dispatching to the backend constructor
// and wrapping the result in a retry layer when MaxRetries > 0.
func New(cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)

	switch cfg.Type {
	case "s3":
		s, err = newS3Store(cfg)
	case "azure":
		s, err = newAzureStore(cfg)
	case "gcs":
		s, err = newGCSStore(cfg)
	case "memory":
		s = GetOrCreateMemoryStore(cfg.Name)
	default:
		return nil, fmt.Errorf("store: unsupported type %q (must be s3, azure, gcs, or memory)", cfg.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("store: creating %s store %q: %w", cfg.Type, cfg.Name, err)
	}

	if cfg.MaxRetries > 0 {
		backoff := cfg.RetryBackoff
		if backoff == "" {
			backoff = "exponential"
		}
		s = WithRetry(s, cfg.MaxRetries, backoff)
	}

	return s, nil
}
