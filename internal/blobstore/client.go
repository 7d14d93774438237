// Package blobstore wraps the Azure Blob Storage SDK behind the small
// surface the pipeline needs: list, upload, download, and existence checks
// against the staging container.
package blobstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

// BlobInfo describes one blob in a container listing.
type BlobInfo struct {
	Name         string
	LastModified time.Time
	SizeBytes    int64
}

// Client talks to Azure Blob Storage. Service clients are cached per
// storage account since a batch commonly stages every record through the
// same account.
type Client struct {
	logger log.FieldLogger

	mu      sync.Mutex
	clients map[string]*azblob.Client
}

func NewClient(logger log.FieldLogger) *Client {
	return &Client{
		logger:  logger,
		clients: make(map[string]*azblob.Client),
	}
}

func (c *Client) serviceClient(target model.StorageTarget) (*azblob.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[target.Account]; ok {
		return client, nil
	}

	credential, err := azblob.NewSharedKeyCredential(target.Account, target.AccessKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage credential")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", target.Account)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage client")
	}

	c.clients[target.Account] = client
	return client, nil
}

// ListBlobs returns every blob in the target container in a single pass.
func (c *Client) ListBlobs(ctx context.Context, target model.StorageTarget) ([]BlobInfo, error) {
	client, err := c.serviceClient(target)
	if err != nil {
		return nil, err
	}

	var blobs []BlobInfo
	pager := client.NewListBlobsFlatPager(target.Container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list blobs in container %s", target.Container)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			info := BlobInfo{Name: *item.Name}
			if item.Properties != nil {
				if item.Properties.LastModified != nil {
					info.LastModified = *item.Properties.LastModified
				}
				if item.Properties.ContentLength != nil {
					info.SizeBytes = *item.Properties.ContentLength
				}
			}
			blobs = append(blobs, info)
		}
	}

	return blobs, nil
}

// Upload stages a local file as blobName and returns the blob URL.
func (c *Client) Upload(ctx context.Context, target model.StorageTarget, blobName, localPath string) (string, error) {
	client, err := c.serviceClient(target)
	if err != nil {
		return "", err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s for upload", localPath)
	}
	defer file.Close()

	_, err = client.UploadFile(ctx, target.Container, blobName, file, nil)
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload %s", blobName)
	}

	url := fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", target.Account, target.Container, blobName)
	c.logger.WithField("blob", blobName).Debug("Uploaded artifact to storage")

	return url, nil
}

// Download fetches blobName into localPath, creating or truncating the file.
func (c *Client) Download(ctx context.Context, target model.StorageTarget, blobName, localPath string) error {
	client, err := c.serviceClient(target)
	if err != nil {
		return err
	}

	file, err := os.Create(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s for download", localPath)
	}
	defer file.Close()

	_, err = client.DownloadFile(ctx, target.Container, blobName, file, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to download %s", blobName)
	}

	return nil
}

// Exists reports whether blobName is present in the target container.
func (c *Client) Exists(ctx context.Context, target model.StorageTarget, blobName string) (bool, error) {
	client, err := c.serviceClient(target)
	if err != nil {
		return false, err
	}

	blobClient := client.ServiceClient().NewContainerClient(target.Container).NewBlobClient(blobName)
	_, err = blobClient.GetProperties(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == "BlobNotFound" {
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to get properties of %s", blobName)
	}

	return true, nil
}

// CheckContainer verifies that the staging container is reachable with the
// configured credentials. Used by preflight before any transfer starts.
func (c *Client) CheckContainer(ctx context.Context, target model.StorageTarget) error {
	client, err := c.serviceClient(target)
	if err != nil {
		return err
	}

	_, err = client.ServiceClient().NewContainerClient(target.Container).GetProperties(ctx, nil)
	if err != nil {
		return &model.ConnectivityError{
			Endpoint: fmt.Sprintf("%s/%s", target.Account, target.Container),
			Err:      err,
		}
	}

	return nil
}
