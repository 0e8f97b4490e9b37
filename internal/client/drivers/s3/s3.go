// Package s3 stores snapshots as objects in an S3-compatible bucket. The
// remote clock travels in the object's user metadata.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/netx"
)

const (
	TypeName = "s3"
	clockKey = "clock"
)

type Config struct {
	Bucket    string `json:"bucket" validate:"required"`
	Region    string `json:"region" validate:"required"`
	Endpoint  string `json:"endpoint,omitempty" validate:"omitempty,url"`
	AccessKey string `json:"accessKey" validate:"required"`
	SecretKey string `json:"secretKey" validate:"required"`
	Prefix    string `json:"prefix,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty"`
}

// objectAPI is the part of *s3.Client the driver uses.
type objectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newObjectAPI = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Driver struct {
	cfg    Config
	opts   drivers.Options
	client objectAPI
	key    string
}

func New() drivers.Driver {
	return &Driver{}
}

func (d *Driver) Configure(cfg map[string]any, opts drivers.Options) error {
	d.opts = opts
	return drivers.DecodeConfig(cfg, &d.cfg)
}

func (d *Driver) Init(ctx context.Context, scopeID string) (drivers.State, error) {
	if scopeID == "" {
		return drivers.State{}, errors.New("s3: empty scope")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(d.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(d.cfg.AccessKey, d.cfg.SecretKey, "")),
	}
	if d.opts.Proxy != "" {
		withProxy, err := netx.ProxyTransport(d.opts.Proxy)
		if err != nil {
			return drivers.State{}, fmt.Errorf("s3: %w", err)
		}
		client := awshttp.NewBuildableClient().WithTransportOptions(withProxy)
		loadOpts = append(loadOpts, config.WithHTTPClient(client))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return drivers.State{}, drivers.Unavailable("init", err)
	}
	d.client = newObjectAPI(awsCfg, func(o *s3.Options) {
		if d.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(d.cfg.Endpoint)
		}
		o.UsePathStyle = d.cfg.PathStyle
	})
	d.key = d.cfg.Prefix + scopeID + "/" + common.SnapshotFileName

	clock, err := d.head(ctx)
	if err != nil {
		return drivers.State{}, err
	}

	cfg := d.cfg
	cfg.SecretKey = ""
	return drivers.State{
		Connected:        true,
		Config:           drivers.EncodeConfig(cfg),
		LastRemoteChange: clock,
		Info:             "s3://" + d.cfg.Bucket + "/" + d.key,
	}, nil
}

// head returns the clock of the current object, 0 when there is none.
func (d *Driver) head(ctx context.Context) (int64, error) {
	out, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.cfg.Bucket),
		Key:    aws.String(d.key),
	})
	if isMissing(err) {
		return 0, nil
	}
	if err != nil {
		return 0, drivers.Unavailable("head", err)
	}
	return parseClock(out.Metadata), nil
}

func (d *Driver) Push(ctx context.Context, content string) (int64, error) {
	if d.client == nil {
		return 0, drivers.Unavailable("push", errors.New("s3: not initialized"))
	}
	prev, err := d.head(ctx)
	if err != nil {
		return 0, err
	}
	clock := drivers.NextClock(prev)

	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.cfg.Bucket),
		Key:         aws.String(d.key),
		Body:        strings.NewReader(content),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{clockKey: strconv.FormatInt(clock, 10)},
	})
	if err != nil {
		return 0, drivers.Unavailable("push", err)
	}
	return clock, nil
}

func (d *Driver) Pull(ctx context.Context) (drivers.Pulled, error) {
	if d.client == nil {
		return drivers.Pulled{}, drivers.Unavailable("pull", errors.New("s3: not initialized"))
	}
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.cfg.Bucket),
		Key:    aws.String(d.key),
	})
	if isMissing(err) {
		return drivers.Pulled{}, nil
	}
	if err != nil {
		return drivers.Pulled{}, drivers.Unavailable("pull", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return drivers.Pulled{}, drivers.Unavailable("pull", err)
	}
	return drivers.Pulled{Content: string(body), LastRemoteChange: parseClock(out.Metadata)}, nil
}

func (d *Driver) Close() error {
	d.client = nil
	return nil
}

func isMissing(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func parseClock(md map[string]string) int64 {
	for k, v := range md {
		if strings.EqualFold(k, clockKey) {
			n, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				return n
			}
		}
	}
	return 0
}
