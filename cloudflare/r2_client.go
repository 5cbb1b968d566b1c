// Package cloudflare provides a blob client for Cloudflare R2
package cloudflare

import (
	a "bitwise74/filehub/aws"
	"context"
	"fmt"

	"github.com/spf13/viper"
)

// NewR2 returns an S3 client pointed at the account's R2 endpoint
func NewR2(ctx context.Context) (*a.S3Client, error) {
	return a.New(ctx, a.Options{
		AccessKeyID:     viper.GetString("storage.access_key_id"),
		SecretAccessKey: viper.GetString("storage.secret_access_key"),
		Region:          "auto",
		Endpoint:        Endpoint(viper.GetString("storage.account_id")),
		Bucket:          viper.GetString("storage.bucket"),
	})
}

func Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}
