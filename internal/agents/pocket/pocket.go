// Package pocket 实现 S3 兼容对象存储(Pocket)的执行者适配器。
package pocket

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"APE-Core/internal/agent"
	"APE-Core/internal/agents"
	xerrors "APE-Core/internal/errors"
)

// Config 描述对象存储的连接参数。
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Region        string
	DefaultBucket string
}

// Agent 通过 S3 API 处理对象存储操作。
type Agent struct {
	client        *minio.Client
	defaultBucket string
	region        string
}

// New 创建对象存储执行者。Endpoint 可以带 http/https 前缀。
func New(cfg Config) (*Agent, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "对象存储 endpoint 不能为空")
	}

	secure := true
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析对象存储 endpoint 失败")
		}
		secure = parsed.Scheme != "http"
		endpoint = parsed.Host
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "创建对象存储客户端失败")
	}

	bucket := cfg.DefaultBucket
	if bucket == "" {
		bucket = "ape-data"
	}
	return &Agent{client: client, defaultBucket: bucket, region: cfg.Region}, nil
}

// Capabilities 返回支持的操作列表。
func (a *Agent) Capabilities() []string {
	return []string{
		"list_buckets",
		"list_objects",
		"get_object",
		"put_object",
		"delete_object",
		"create_bucket",
	}
}

// Process 按 action 分发请求。
func (a *Agent) Process(ctx context.Context, req agent.Request) agent.Response {
	switch req.Action {
	case "list_buckets":
		return a.listBuckets(ctx)
	case "list_objects":
		return a.listObjects(ctx, req.Params)
	case "get_object":
		return a.getObject(ctx, req.Params)
	case "put_object":
		return a.putObject(ctx, req.Params)
	case "delete_object":
		return a.deleteObject(ctx, req.Params)
	case "create_bucket":
		return a.createBucket(ctx, req.Params)
	default:
		return agent.Fail("unsupported action: %s", req.Action)
	}
}

func (a *Agent) bucket(params map[string]any) string {
	return agents.StringParamDefault(params, "bucket", a.defaultBucket)
}

func (a *Agent) listBuckets(ctx context.Context) agent.Response {
	buckets, err := a.client.ListBuckets(ctx)
	if err != nil {
		return agent.Fail("list buckets: %v", err)
	}
	names := make([]map[string]any, 0, len(buckets))
	for _, bucket := range buckets {
		names = append(names, map[string]any{
			"name":       bucket.Name,
			"created_at": bucket.CreationDate.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return agent.Succeed(map[string]any{"buckets": names})
}

func (a *Agent) listObjects(ctx context.Context, params map[string]any) agent.Response {
	bucket := a.bucket(params)
	maxKeys := agents.IntParam(params, "max_keys", 1000)

	objects := make([]map[string]any, 0)
	for info := range a.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    agents.StringParam(params, "prefix"),
		Recursive: true,
	}) {
		if info.Err != nil {
			return agent.Fail("list objects in %s: %v", bucket, info.Err)
		}
		objects = append(objects, map[string]any{
			"key":           info.Key,
			"size":          info.Size,
			"last_modified": info.LastModified.UTC().Format("2006-01-02T15:04:05Z"),
		})
		if len(objects) >= maxKeys {
			break
		}
	}
	return agent.Succeed(map[string]any{"bucket": bucket, "objects": objects})
}

func (a *Agent) getObject(ctx context.Context, params map[string]any) agent.Response {
	key := agents.StringParam(params, "key")
	if key == "" {
		return agent.Fail("key is required")
	}
	bucket := a.bucket(params)

	object, err := a.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return agent.Fail("get object %s/%s: %v", bucket, key, err)
	}
	defer object.Close()

	content, err := io.ReadAll(io.LimitReader(object, 16<<20))
	if err != nil {
		return agent.Fail("read object %s/%s: %v", bucket, key, err)
	}
	return agent.Succeed(map[string]any{
		"bucket":  bucket,
		"key":     key,
		"content": string(content),
	})
}

func (a *Agent) putObject(ctx context.Context, params map[string]any) agent.Response {
	key := agents.StringParam(params, "key")
	if key == "" {
		return agent.Fail("key is required")
	}
	bucket := a.bucket(params)
	content := agents.StringParam(params, "content")
	contentType := agents.StringParamDefault(params, "content_type", "application/octet-stream")

	info, err := a.client.PutObject(ctx, bucket, key,
		bytes.NewReader([]byte(content)), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return agent.Fail("put object %s/%s: %v", bucket, key, err)
	}
	return agent.Succeed(map[string]any{
		"bucket": bucket,
		"key":    key,
		"size":   info.Size,
		"etag":   info.ETag,
	})
}

func (a *Agent) deleteObject(ctx context.Context, params map[string]any) agent.Response {
	key := agents.StringParam(params, "key")
	if key == "" {
		return agent.Fail("key is required")
	}
	bucket := a.bucket(params)

	if err := a.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return agent.Fail("delete object %s/%s: %v", bucket, key, err)
	}
	return agent.Succeed(map[string]any{"bucket": bucket, "key": key, "deleted": true})
}

func (a *Agent) createBucket(ctx context.Context, params map[string]any) agent.Response {
	bucket := agents.StringParam(params, "bucket")
	if bucket == "" {
		return agent.Fail("bucket is required")
	}
	if err := a.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
		return agent.Fail("create bucket %s: %v", bucket, err)
	}
	return agent.Succeed(map[string]any{"bucket": bucket, "created": true})
}

var _ agent.Agent = (*Agent)(nil)
