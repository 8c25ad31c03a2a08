package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewFromConfig builds a Store from the default AWS configuration chain
// (environment, shared config files, instance roles).
func NewFromConfig(ctx context.Context, bucket, prefix string, optFns ...func(*config.LoadOptions) error) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewDDBCommitStoreFromConfig builds an S3 store plus DynamoDB commit table
// from the default AWS configuration chain.
func NewDDBCommitStoreFromConfig(ctx context.Context, bucket, prefix, table string, optFns ...func(*config.LoadOptions) error) (*DDBCommitStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	store := NewStore(s3.NewFromConfig(cfg), bucket, prefix)
	baseURI := "s3://" + bucket + "/" + prefix
	return NewDDBCommitStore(store, dynamodb.NewFromConfig(cfg), table, baseURI), nil
}
