package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/csvflow/transport"
	"github.com/drblury/csvflow/transport/transporttest"
)

type stubs struct {
	pub        *transporttest.Publisher
	accountID  string
	region     string
	pubConfig  sns.PublisherConfig
	subConfig  sns.SubscriberConfig
	loaderOpts int
}

func stubFactories(t *testing.T, loaderErr, pubErr, subErr error) *stubs {
	t.Helper()
	origLoader, origResolver := DefaultConfigLoader, TopicResolverFactory
	origPub, origSub := PublisherFactory, SubscriberFactory
	t.Cleanup(func() {
		DefaultConfigLoader = origLoader
		TopicResolverFactory = origResolver
		PublisherFactory = origPub
		SubscriberFactory = origSub
	})

	s := &stubs{pub: &transporttest.Publisher{}}
	DefaultConfigLoader = func(ctx context.Context, opts ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		s.loaderOpts = len(opts)
		return aws.Config{Region: "us-east-1"}, loaderErr
	}
	TopicResolverFactory = func(accountID, region string) (*sns.GenerateArnTopicResolver, error) {
		s.accountID, s.region = accountID, region
		return &sns.GenerateArnTopicResolver{}, nil
	}
	PublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		s.pubConfig = cfg
		return s.pub, pubErr
	}
	SubscriberFactory = func(cfg sns.SubscriberConfig, sqsCfg sqs.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		s.subConfig = cfg
		return transporttest.Subscriber{}, subErr
	}
	return s
}

func TestRegisteredWithDefaultRegistry(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))
}

func TestBuild(t *testing.T) {
	s := stubFactories(t, nil, nil, nil)

	tr, err := Build(context.Background(), &transporttest.Config{
		AWSRegion:          "eu-north-1",
		AWSAccountID:       "123456789012",
		AWSAccessKeyID:     "AKIA",
		AWSSecretAccessKey: "secret",
	}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Same(t, s.pub, tr.Publisher)

	assert.Equal(t, "123456789012", s.accountID)
	assert.Equal(t, "eu-north-1", s.region)
	assert.Equal(t, "eu-north-1", s.pubConfig.AWSConfig.Region)
	assert.Equal(t, 2, s.loaderOpts)
	assert.Empty(t, s.pubConfig.OptFns)
}

func TestBuildWithLocalstackEndpoint(t *testing.T) {
	s := stubFactories(t, nil, nil, nil)

	_, err := Build(context.Background(), &transporttest.Config{
		AWSEndpoint: "http://localhost:4566",
	}, watermill.NopLogger{})
	require.NoError(t, err)

	assert.Equal(t, localstackAccountID, s.accountID)
	assert.Equal(t, "us-east-1", s.region)
	assert.Len(t, s.pubConfig.OptFns, 1)
	assert.Len(t, s.subConfig.OptFns, 1)
}

func TestBuildErrors(t *testing.T) {
	stubFactories(t, errors.New("config error"), nil, nil)
	_, err := Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "config error")

	stubFactories(t, nil, nil, nil)
	_, err = Build(context.Background(), &transporttest.Config{AWSEndpoint: "localhost"}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "absolute URL")

	stubFactories(t, nil, errors.New("publisher error"), nil)
	_, err = Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "publisher error")

	s := stubFactories(t, nil, nil, errors.New("subscriber error"))
	_, err = Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "subscriber error")
	assert.True(t, s.pub.Closed)
}

func TestResolveAccountAndRegion(t *testing.T) {
	account, region := resolveAccountAndRegion(&transporttest.Config{AWSAccountID: `"123456789012"`}, "us-east-1", false)
	assert.Equal(t, "123456789012", account)
	assert.Equal(t, "us-east-1", region)

	account, _ = resolveAccountAndRegion(&transporttest.Config{AWSAccountID: "123"}, "us-east-1", true)
	assert.Equal(t, localstackAccountID, account)

	account, _ = resolveAccountAndRegion(&transporttest.Config{AWSAccountID: "123"}, "us-east-1", false)
	assert.Equal(t, "123", account)
}

func TestResolveEndpoint(t *testing.T) {
	u, err := resolveEndpoint(&transporttest.Config{}, aws.Config{})
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = resolveEndpoint(&transporttest.Config{}, aws.Config{BaseEndpoint: aws.String("http://env:4566")})
	require.NoError(t, err)
	assert.Equal(t, "env:4566", u.Host)

	u, err = resolveEndpoint(&transporttest.Config{AWSEndpoint: "http://cfg:4566"}, aws.Config{BaseEndpoint: aws.String("http://env:4566")})
	require.NoError(t, err)
	assert.Equal(t, "cfg:4566", u.Host)
}

func TestQueueNameFromTopic(t *testing.T) {
	name, err := queueNameFromTopic(context.Background(), "arn:aws:sns:us-east-1:000000000000:envelopes")
	require.NoError(t, err)
	assert.Equal(t, "envelopes", name)
}
