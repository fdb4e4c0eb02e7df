package catalog

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/talkincode/stockpilot/internal/domain"
)

// Compression budgets: larger sources get the larger budget so the
// quality search has room to keep detail.
const (
	budgetLarge       = 200 * 1024
	budgetSmall       = 100 * 1024
	largeSourceCutoff = 1024 * 1024
)

// File is one upload item: original filename plus raw payload.
type File struct {
	Name string
	Data []byte
}

// Code derives the product code from the base filename, everything
// before the first dot.
func (f File) Code() string {
	base := filepath.Base(f.Name)
	code, _, _ := strings.Cut(base, ".")
	return code
}

// ItemError records a single failed item inside a batch.
type ItemError struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// BatchResult summarizes a batch upload: one bad file never aborts its
// siblings.
type BatchResult struct {
	Succeeded int         `json:"succeeded"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// MatchResult summarizes a folder match run.
type MatchResult struct {
	Matched   int         `json:"matched"`
	Unmatched []string    `json:"unmatched,omitempty"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// targetBudget picks the compression byte budget from the source size.
func targetBudget(sourceSize int) int {
	if sourceSize > largeSourceCutoff {
		return budgetLarge
	}
	return budgetSmall
}

// UploadImages compresses every file and upserts its blob under
// (code, supplierHint). Files are processed on the bounded worker pool;
// per-file failures are collected, logged and reported without touching
// the rest of the batch.
func (s *Service) UploadImages(ctx context.Context, files []File, supplierHint string) BatchResult {
	var (
		mu     sync.Mutex
		result BatchResult
		wg     sync.WaitGroup
	)
	for _, file := range files {
		file := file
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			if err := s.uploadOne(ctx, file, supplierHint); err != nil {
				zap.L().Warn("upload failed",
					zap.String("file", file.Name), zap.Error(err))
				mu.Lock()
				result.Errors = append(result.Errors, ItemError{Name: file.Name, Err: err})
				mu.Unlock()
				return
			}
			mu.Lock()
			result.Succeeded++
			mu.Unlock()
		}); err != nil {
			wg.Done()
			mu.Lock()
			result.Errors = append(result.Errors, ItemError{Name: file.Name, Err: err})
			mu.Unlock()
		}
	}
	wg.Wait()
	if result.Succeeded > 0 {
		s.publishChanged("images")
	}
	return result
}

func (s *Service) uploadOne(ctx context.Context, file File, supplier string) error {
	payload, err := s.compressor.Compress(file.Data, targetBudget(len(file.Data)))
	if err != nil {
		return err
	}
	return s.blobs.Put(ctx, domain.ImageBlob{
		Code:      file.Code(),
		Supplier:  supplier,
		Format:    "jpeg",
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// MatchFolder associates a folder of image files with existing products
// by code. Each matched file is compressed once and its blob written
// under every (code, supplier) variant of that code. Unmatched filenames
// are reported, individual failures aggregated, nothing thrown per file.
func (s *Service) MatchFolder(ctx context.Context, files []File) (MatchResult, error) {
	products, err := s.records.LoadProducts()
	if err != nil {
		return MatchResult{}, err
	}
	suppliersByCode := make(map[string][]string)
	for _, p := range products {
		suppliersByCode[p.Code] = append(suppliersByCode[p.Code], p.Supplier)
	}

	var (
		mu     sync.Mutex
		result MatchResult
		wg     sync.WaitGroup
	)
	for _, file := range files {
		file := file
		code := file.Code()
		suppliers, ok := suppliersByCode[code]
		if !ok {
			result.Unmatched = append(result.Unmatched, file.Name)
			continue
		}
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			if err := s.matchOne(ctx, file, code, suppliers); err != nil {
				zap.L().Warn("folder match failed",
					zap.String("file", file.Name), zap.Error(err))
				mu.Lock()
				result.Errors = append(result.Errors, ItemError{Name: file.Name, Err: err})
				mu.Unlock()
				return
			}
			mu.Lock()
			result.Matched++
			mu.Unlock()
		}); err != nil {
			wg.Done()
			mu.Lock()
			result.Errors = append(result.Errors, ItemError{Name: file.Name, Err: err})
			mu.Unlock()
		}
	}
	wg.Wait()
	if result.Matched > 0 {
		s.publishChanged("images")
	}
	return result, nil
}

// matchOne compresses once and fans the payload out to every supplier
// variant of the code.
func (s *Service) matchOne(ctx context.Context, file File, code string, suppliers []string) error {
	payload, err := s.compressor.Compress(file.Data, targetBudget(len(file.Data)))
	if err != nil {
		return err
	}
	now := time.Now()
	for _, supplier := range suppliers {
		if err := s.blobs.Put(ctx, domain.ImageBlob{
			Code:      code,
			Supplier:  supplier,
			Format:    "jpeg",
			Payload:   payload,
			Timestamp: now,
		}); err != nil {
			return err
		}
	}
	return nil
}
