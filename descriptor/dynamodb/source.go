// Package dynamodb serves iPlug descriptors from a DynamoDB table.
//
// Table schema:
//   - Partition key: plug_id (string)
//   - partners, providers: string sets or lists of strings
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name ingrid-descriptors \
//	  --attribute-definitions AttributeName=plug_id,AttributeType=S \
//	  --key-schema AttributeName=plug_id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/informationgrid/ingrid-search-utils/descriptor"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned when the table holds no descriptor for the plug.
var ErrNotFound = errors.New("dynamodb: descriptor not found")

// Client is the interface for DynamoDB operations.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Options configures a Source.
type Options struct {
	// KeyAttribute is the partition key name. Defaults to "plug_id".
	KeyAttribute string
	// TTL is how long a fetched descriptor is served before it is read again.
	// Zero reads on every call.
	TTL time.Duration
	// ConsistentRead requests strongly consistent reads.
	ConsistentRead bool
}

// DefaultOptions are the options used by NewSource.
var DefaultOptions = Options{
	KeyAttribute: "plug_id",
	TTL:          time.Minute,
}

// Source implements descriptor.Source on a DynamoDB item.
type Source struct {
	client Client
	table  string
	plugID string
	opts   Options

	group singleflight.Group

	mu      sync.Mutex
	cached  *descriptor.Descriptor
	fetched time.Time
	now     func() time.Time
}

var _ descriptor.Source = (*Source)(nil)

// NewSource reads the descriptor of plugID from table.
func NewSource(client Client, table, plugID string, optFns ...func(o *Options)) *Source {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.KeyAttribute == "" {
		opts.KeyAttribute = DefaultOptions.KeyAttribute
	}
	return &Source{
		client: client,
		table:  table,
		plugID: plugID,
		opts:   opts,
		now:    time.Now,
	}
}

// New creates a Source using the default AWS configuration chain.
func New(ctx context.Context, table, plugID string, optFns ...func(o *Options)) (*Source, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: load config: %w", err)
	}
	return NewSource(dynamodb.NewFromConfig(cfg), table, plugID, optFns...), nil
}

// Partners returns the partners of the plug.
func (s *Source) Partners(ctx context.Context) ([]string, error) {
	d, err := s.Descriptor(ctx)
	if err != nil {
		return nil, err
	}
	return d.PartnerIDs, nil
}

// Providers returns the providers of the plug.
func (s *Source) Providers(ctx context.Context) ([]string, error) {
	d, err := s.Descriptor(ctx)
	if err != nil {
		return nil, err
	}
	return d.ProviderIDs, nil
}

// Descriptor returns the cached descriptor, reading the item when the cache
// is empty or older than the TTL. Concurrent reads share one request.
func (s *Source) Descriptor(ctx context.Context) (*descriptor.Descriptor, error) {
	s.mu.Lock()
	if s.cached != nil && s.opts.TTL > 0 && s.now().Sub(s.fetched) < s.opts.TTL {
		d := s.cached
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(s.plugID, func() (any, error) {
		d, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cached = d
		s.fetched = s.now()
		s.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*descriptor.Descriptor), nil
}

// Invalidate drops the cached descriptor.
func (s *Source) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *Source) fetch(ctx context.Context) (*descriptor.Descriptor, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			s.opts.KeyAttribute: &types.AttributeValueMemberS{Value: s.plugID},
		},
		ConsistentRead: aws.Bool(s.opts.ConsistentRead),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get descriptor %s: %w", s.plugID, err)
	}
	if len(resp.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.plugID)
	}

	partners, err := stringsAttr(resp.Item, "partners")
	if err != nil {
		return nil, err
	}
	providers, err := stringsAttr(resp.Item, "providers")
	if err != nil {
		return nil, err
	}
	return &descriptor.Descriptor{PartnerIDs: partners, ProviderIDs: providers}, nil
}

// Put stores d as the descriptor of the plug and refreshes the cache.
func (s *Source) Put(ctx context.Context, d *descriptor.Descriptor) error {
	item := map[string]types.AttributeValue{
		s.opts.KeyAttribute: &types.AttributeValueMemberS{Value: s.plugID},
		"partners":          listAttr(d.PartnerIDs),
		"providers":         listAttr(d.ProviderIDs),
	}
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb: put descriptor %s: %w", s.plugID, err)
	}

	s.mu.Lock()
	s.cached = d
	s.fetched = s.now()
	s.mu.Unlock()
	return nil
}

// listAttr encodes values as a list; string sets cannot be empty.
func listAttr(values []string) types.AttributeValue {
	l := make([]types.AttributeValue, len(values))
	for i, v := range values {
		l[i] = &types.AttributeValueMemberS{Value: v}
	}
	return &types.AttributeValueMemberL{Value: l}
}

func stringsAttr(item map[string]types.AttributeValue, name string) ([]string, error) {
	switch v := item[name].(type) {
	case nil:
		return nil, nil
	case *types.AttributeValueMemberSS:
		return v.Value, nil
	case *types.AttributeValueMemberS:
		return []string{v.Value}, nil
	case *types.AttributeValueMemberL:
		out := make([]string, 0, len(v.Value))
		for i, e := range v.Value {
			s, ok := e.(*types.AttributeValueMemberS)
			if !ok {
				return nil, fmt.Errorf("dynamodb: %s[%d] is not a string", name, i)
			}
			out = append(out, s.Value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("dynamodb: invalid %s attribute %T", name, v)
	}
}
