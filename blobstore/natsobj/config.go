package natsobj

import (
	"fmt"
	"time"

	"github.com/apicomponents/blob-collection/errors"
)

// Config holds configuration for the NATS ObjectStore-backed blob client.
type Config struct {
	// URL is the NATS server URL.
	URL string `json:"url" schema:"description=NATS server URL,default=nats://localhost:4222"`

	// Bucket is the JetStream ObjectStore bucket name.
	Bucket string `json:"bucket" schema:"description=ObjectStore bucket name,default=DOCUMENTS"`

	// Description is stored on the bucket when it is created.
	Description string `json:"description" schema:"description=Bucket description"`

	// Replicas is the JetStream replication factor for the bucket.
	Replicas int `json:"replicas" schema:"description=Bucket replication factor,default=1,minimum=1"`

	// ConnectTimeout bounds each connection attempt.
	ConnectTimeout time.Duration `json:"connectTimeout" schema:"description=Connection timeout,default=5s"`

	// ConnectAttempts is the number of dial attempts before Connect gives
	// up; attempts back off exponentially.
	ConnectAttempts int `json:"connectAttempts" schema:"description=Dial attempts with backoff,default=3,minimum=1"`

	// RetryDelayMin and RetryDelayMax bound the jittered delay suggested to
	// callers retrying a read that may have raced a recent write.
	RetryDelayMin time.Duration `json:"retryDelayMin" schema:"description=Minimum read retry delay,default=750ms"`
	RetryDelayMax time.Duration `json:"retryDelayMax" schema:"description=Maximum read retry delay,default=1500ms"`
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		URL:             "nats://localhost:4222",
		Bucket:          "DOCUMENTS",
		Replicas:        1,
		ConnectTimeout:  5 * time.Second,
		ConnectAttempts: 3,
		RetryDelayMin:   750 * time.Millisecond,
		RetryDelayMax:   1500 * time.Millisecond,
	}
}

// Validate checks the configuration for correctness.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(
			fmt.Errorf("url is required"), "natsobj", "Validate", "url check")
	}
	if c.Bucket == "" {
		return errors.WrapInvalid(
			fmt.Errorf("bucket is required"), "natsobj", "Validate", "bucket check")
	}
	if c.Replicas < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("replicas must be at least 1, got %d", c.Replicas),
			"natsobj", "Validate", "replicas check")
	}
	if c.ConnectAttempts < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("connect attempts must be at least 1, got %d", c.ConnectAttempts),
			"natsobj", "Validate", "connect attempts check")
	}
	if c.RetryDelayMin < 0 || c.RetryDelayMax < c.RetryDelayMin {
		return errors.WrapInvalid(
			fmt.Errorf("retry delay range [%v, %v] is invalid", c.RetryDelayMin, c.RetryDelayMax),
			"natsobj", "Validate", "retry delay check")
	}
	return nil
}
