package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/informationgrid/ingrid-search-utils/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func forPlug(id string) any {
	return mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		key, ok := in.Key["plug_id"].(*types.AttributeValueMemberS)
		return ok && key.Value == id && *in.TableName == "descriptors"
	})
}

func TestSource_Fetch(t *testing.T) {
	client := new(mockClient)
	client.On("GetItem", mock.Anything, forPlug("dsc-ni")).Return(&dynamodb.GetItemOutput{
		Item: map[string]types.AttributeValue{
			"plug_id":  &types.AttributeValueMemberS{Value: "dsc-ni"},
			"partners": &types.AttributeValueMemberSS{Value: []string{"he", "ni"}},
			"providers": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: "he_p1"},
				&types.AttributeValueMemberS{Value: "ni_p2"},
			}},
		},
	}, nil).Once()

	src := NewSource(client, "descriptors", "dsc-ni")

	partners, err := src.Partners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"he", "ni"}, partners)

	// second call is served from the cache
	providers, err := src.Providers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"he_p1", "ni_p2"}, providers)

	client.AssertExpectations(t)
}

func TestSource_TTL(t *testing.T) {
	client := new(mockClient)
	item := &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"partners": &types.AttributeValueMemberS{Value: "bund"},
	}}
	client.On("GetItem", mock.Anything, forPlug("p")).Return(item, nil).Twice()

	src := NewSource(client, "descriptors", "p", func(o *Options) { o.TTL = time.Second })
	now := time.Unix(1000, 0)
	src.now = func() time.Time { return now }

	_, err := src.Partners(context.Background())
	require.NoError(t, err)
	_, err = src.Partners(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	partners, err := src.Partners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bund"}, partners)

	client.AssertNumberOfCalls(t, "GetItem", 2)
}

func TestSource_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		client := new(mockClient)
		client.On("GetItem", mock.Anything, forPlug("missing")).Return(&dynamodb.GetItemOutput{}, nil)
		_, err := NewSource(client, "descriptors", "missing").Partners(ctx)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Backend", func(t *testing.T) {
		boom := errors.New("throttled")
		client := new(mockClient)
		client.On("GetItem", mock.Anything, mock.Anything).Return(nil, boom)
		_, err := NewSource(client, "descriptors", "x").Providers(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("BadAttribute", func(t *testing.T) {
		client := new(mockClient)
		client.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{
			Item: map[string]types.AttributeValue{
				"partners": &types.AttributeValueMemberN{Value: "1"},
			},
		}, nil)
		_, err := NewSource(client, "descriptors", "x").Partners(ctx)
		assert.Error(t, err)
	})
}

func TestSource_Put(t *testing.T) {
	client := new(mockClient)
	client.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		l, ok := in.Item["partners"].(*types.AttributeValueMemberL)
		return ok && len(l.Value) == 1 && *in.TableName == "descriptors"
	})).Return(&dynamodb.PutItemOutput{}, nil).Once()

	src := NewSource(client, "descriptors", "p")
	require.NoError(t, src.Put(context.Background(), descriptor.Static([]string{"bund"}, nil)))

	partners, err := src.Partners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bund"}, partners)
	client.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)

	src.Invalidate()
	client.AssertExpectations(t)
}
