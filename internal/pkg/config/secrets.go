// internal/pkg/config/secrets.go
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// secretKeys maps Secrets Manager JSON keys onto config fields. Only
// credentials live in the secret; everything else stays in the
// environment.
const (
	secretKeyDBPassword    = "DB_PASSWORD"
	secretKeyRedisPassword = "REDIS_PASSWORD"
	secretKeyJWTSecret     = "JWT_SECRET"
	secretKeyAWSAccessKey  = "AWS_ACCESS_KEY_ID"
	secretKeyAWSSecretKey  = "AWS_SECRET_ACCESS_KEY"
)

// overlaySecrets fetches the named secret from AWS Secrets Manager and
// writes its credential fields over the env-derived config. Deployments
// without a secret name skip this entirely.
func overlaySecrets(ctx context.Context, cfg *Config, secretName string, logger *slog.Logger) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretName),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return fmt.Errorf("get secret %q: %w", secretName, err)
	}
	if out.SecretString == nil {
		return fmt.Errorf("secret %q has no string payload", secretName)
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		return fmt.Errorf("parse secret %q: %w", secretName, err)
	}

	applied := 0
	for key, val := range values {
		if val == "" {
			continue
		}
		switch key {
		case secretKeyDBPassword:
			cfg.Database.Password = val
		case secretKeyRedisPassword:
			cfg.Redis.Password = val
			cfg.Asynq.RedisPassword = val
		case secretKeyJWTSecret:
			cfg.Security.JWTSecret = val
		case secretKeyAWSAccessKey:
			cfg.AWS.AccessKeyID = val
		case secretKeyAWSSecretKey:
			cfg.AWS.SecretAccessKey = val
		default:
			continue
		}
		applied++
	}

	logger.Info("applied secrets overlay",
		slog.String("secret_name", secretName),
		slog.Int("keys_applied", applied))
	return nil
}
