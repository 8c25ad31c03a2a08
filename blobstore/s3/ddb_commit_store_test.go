package s3

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/genarena/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDDB is an in-memory DynamoDB stand-in that honours
// attribute_not_exists conditions.
type fakeDDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// beforePut runs once before the next PutItem, to simulate a racing writer.
	beforePut func()
}

func newFakeDDB() *fakeDDB {
	return &fakeDDB{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if hook := f.beforePut; hook != nil {
		f.beforePut = nil
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	uri := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := uri + ":" + version

	if aws.ToString(params.ConditionExpression) == "attribute_not_exists(version)" {
		if _, exists := f.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	f.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDDB) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	uri := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range f.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == uri {
			items = append(items, item)
		}
	}
	version := func(item map[string]types.AttributeValue) uint64 {
		v, _ := strconv.ParseUint(item["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return v
	}
	sort.Slice(items, func(i, j int) bool { return version(items[i]) > version(items[j]) })

	if params.Limit != nil && len(items) > int(*params.Limit) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func TestDDBCommitStore(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	ddb := newFakeDDB()
	store := NewDDBCommitStore(blobs, ddb, "genarena-commits", "s3://bucket/arena")

	_, err := store.Open(ctx, blobstore.Current)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(ctx, "snap-1.gar", []byte("one")))
	require.NoError(t, store.Put(ctx, blobstore.Current, []byte("snap-1.gar")))
	require.NoError(t, store.Put(ctx, "snap-2.gar", []byte("two")))
	require.NoError(t, store.Put(ctx, blobstore.Current, []byte("snap-2.gar")))

	version, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)

	current, err := blobstore.Get(ctx, store, blobstore.Current)
	require.NoError(t, err)
	assert.Equal(t, "snap-2.gar", string(current))

	// CURRENT lives in DynamoDB only.
	_, err = blobs.Open(ctx, blobstore.Current)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	data, err := blobstore.Get(ctx, store, string(current))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	names, err := store.List(ctx, "snap-")
	require.NoError(t, err)
	assert.Equal(t, []string{"snap-1.gar", "snap-2.gar"}, names)

	require.NoError(t, store.Delete(ctx, "snap-1.gar"))
	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"snap-2.gar"}, names)
}

func TestDDBCommitStore_ConcurrentModification(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDDB()
	store := NewDDBCommitStore(blobstore.NewMemoryStore(), ddb, "genarena-commits", "s3://bucket/arena")
	rival := NewDDBCommitStore(blobstore.NewMemoryStore(), ddb, "genarena-commits", "s3://bucket/arena")

	require.NoError(t, store.Put(ctx, blobstore.Current, []byte("snap-1.gar")))

	ddb.beforePut = func() {
		require.NoError(t, rival.Put(ctx, blobstore.Current, []byte("rival.gar")))
	}
	err := store.Put(ctx, blobstore.Current, []byte("snap-2.gar"))
	assert.ErrorIs(t, err, ErrConcurrentModification)

	current, err := blobstore.Get(ctx, store, blobstore.Current)
	require.NoError(t, err)
	assert.Equal(t, "rival.gar", string(current))
}

func TestDDBCommitStore_PartitionsByBaseURI(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDDB()
	a := NewDDBCommitStore(blobstore.NewMemoryStore(), ddb, "t", "s3://bucket/a")
	b := NewDDBCommitStore(blobstore.NewMemoryStore(), ddb, "t", "s3://bucket/b")

	require.NoError(t, a.Put(ctx, blobstore.Current, []byte("a.gar")))

	_, err := b.Open(ctx, blobstore.Current)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
