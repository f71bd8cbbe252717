package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/stockcover/internal/app"
	"github.com/andresuchdata/stockcover/internal/drive"
	"github.com/andresuchdata/stockcover/internal/storage"
	"github.com/urfave/cli/v2"
)

// outflowRefs collects the outflow references of the analyze command: the
// explicit ones first, then the listed prefix or folder.
func outflowRefs(c *cli.Context, application *app.App) ([]string, error) {
	refs := append([]string(nil), c.StringSlice("outflow")...)

	if prefix := c.String("outflow-prefix"); prefix != "" {
		if application.Storage == nil {
			return nil, fmt.Errorf("--outflow-prefix needs object storage (S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY)")
		}
		listed, err := storageRefs(c.Context, application.Storage, prefix)
		if err != nil {
			return nil, err
		}
		refs = append(refs, listed...)
	}

	if folder := c.String("outflow-folder"); folder != "" {
		if application.Drive == nil {
			return nil, fmt.Errorf("--outflow-folder needs GOOGLE_DRIVE_CREDENTIALS_JSON")
		}
		folderID := folder
		if strings.Contains(folder, "/") {
			id, err := application.Drive.FindFolderByPath(c.Context, folder)
			if err != nil {
				return nil, err
			}
			folderID = id
		}
		files, err := drive.Spreadsheets(c.Context, application.Drive, folderID)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			refs = append(refs, drive.Ref(f.ID))
		}
	}

	if len(refs) == 0 {
		return nil, fmt.Errorf("at least one --outflow, --outflow-prefix or --outflow-folder is required")
	}
	return refs, nil
}

// storageRefs lists the spreadsheets under prefix as s3:// references in key
// order, which keeps period-named exports chronological.
func storageRefs(ctx context.Context, store storage.ObjectStorage, prefix string) ([]string, error) {
	listPrefix := strings.TrimPrefix(strings.TrimSpace(prefix), "/")
	objects, err := store.ListObjects(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects for prefix %s: %w", listPrefix, err)
	}

	var keys []string
	for _, obj := range objects {
		switch strings.ToLower(filepath.Ext(obj.Key)) {
		case ".xlsx", ".xls", ".csv":
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no spreadsheets found for prefix %s", listPrefix)
	}
	sort.Strings(keys)

	refs := make([]string, len(keys))
	for i, key := range keys {
		refs[i] = fmt.Sprintf("s3://%s/%s", store.Bucket(), key)
	}
	return refs, nil
}
