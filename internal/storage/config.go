package storage

import "time"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// URLTTL bounds links from PresignedURL; S3 caps it at seven days.
	URLTTL time.Duration
}

const maxPresignTTL = 7 * 24 * time.Hour

func (c *MinIOConfig) urlTTL() time.Duration {
	if c.URLTTL <= 0 || c.URLTTL > maxPresignTTL {
		return maxPresignTTL
	}
	return c.URLTTL
}
