package filecrypt

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

const (
	// EncryptedExtension is appended to encrypted output names
	EncryptedExtension = ".encrypted"

	decryptedSuffix = "_decrypted"

	// NoFilesMessage is reported by EncryptFolder when nothing matched
	NoFilesMessage = "no files found matching criteria"
)

// BatchConfig controls parallel processing of batches
type BatchConfig struct {
	// MaxWorkers is the maximum number of worker goroutines
	// If 0, defaults to runtime.NumCPU()
	MaxWorkers int

	// MinFilesForParallel is the minimum batch size processed in parallel
	// Below this threshold files are processed sequentially
	MinFilesForParallel int
}

// DefaultBatchConfig returns the default batch configuration
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxWorkers:          runtime.NumCPU(),
		MinFilesForParallel: 2,
	}
}

// Validate checks if the batch configuration is valid
func (c BatchConfig) Validate() error {
	if c.MaxWorkers < 0 {
		return NewValidationError("max_workers", c.MaxWorkers, "max workers cannot be negative")
	}
	if c.MaxWorkers > 1024 {
		return NewValidationError("max_workers", c.MaxWorkers, "max workers must not exceed 1024")
	}
	if c.MinFilesForParallel < 1 {
		return NewValidationError("min_files_for_parallel", c.MinFilesForParallel, "parallel threshold must be at least 1")
	}
	return nil
}

// BatchProgress is called once as each file starts. Calls are serialized;
// index is 1-based in start order.
type BatchProgress func(index, total int, name string)

// FileResult is the outcome of one file of a batch
type FileResult struct {
	Input   string
	Output  string
	Err     error
	Encrypt *EncryptResult // Set on successful encryption
	Decrypt *DecryptResult // Set on successful decryption
}

// Succeeded reports whether the file was processed
func (r FileResult) Succeeded() bool {
	return r.Err == nil
}

// BatchResult summarizes a batch. Files is in input order.
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Files     []FileResult
	Message   string
}

// Err returns every per-file failure, or nil if all files succeeded
func (r *BatchResult) Err() error {
	var result *multierror.Error
	for _, f := range r.Files {
		if f.Err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", f.Input, f.Err))
		}
	}
	return result.ErrorOrNil()
}

// FolderOptions selects the files EncryptFolder processes
type FolderOptions struct {
	Recursive bool
	Patterns  []string // Glob patterns matched against base names, e.g. "*.mp4"
}

// Batch runs an Engine over many files. A failure on one file never stops
// the others.
type Batch struct {
	engine *Engine
	config BatchConfig
	log    logrus.FieldLogger
}

// NewBatch creates a batch orchestrator
func NewBatch(engine *Engine, config BatchConfig) (*Batch, error) {
	if engine == nil {
		return nil, NewValidationError("engine", nil, "engine cannot be nil")
	}
	if engine.fs == nil {
		return nil, NewValidationError("filesystem", nil, "engine has no filesystem")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Batch{engine: engine, config: config, log: engine.log}, nil
}

type batchJob struct {
	result *FileResult
	run    func() error
}

// EncryptFiles encrypts every path into outDir/<base>.encrypted
func (b *Batch) EncryptFiles(paths []string, outDir string, password []byte, progress BatchProgress) (*BatchResult, error) {
	if err := b.prepareOutDir(outDir); err != nil {
		return nil, err
	}

	result := newBatchResult(paths)
	claimed := make(map[string]string, len(paths))
	var jobs []batchJob
	for i, p := range paths {
		fr := &result.Files[i]
		fr.Output = filepath.Join(outDir, filepath.Base(p)+EncryptedExtension)
		if err := claim(claimed, fr.Output, p); err != nil {
			fr.Err = err
			continue
		}
		jobs = append(jobs, batchJob{result: fr, run: func() error {
			res, err := b.engine.EncryptFile(fr.Input, fr.Output, password, nil)
			fr.Encrypt = res
			return err
		}})
	}

	b.run(jobs, len(paths), progress)
	return result.tally(), nil
}

// DecryptFiles decrypts every container into outDir/<stem>_decrypted<ext>,
// named after the original filename recorded in its metadata
func (b *Batch) DecryptFiles(paths []string, outDir string, password []byte, progress BatchProgress) (*BatchResult, error) {
	if err := b.prepareOutDir(outDir); err != nil {
		return nil, err
	}

	result := newBatchResult(paths)
	claimed := make(map[string]string, len(paths))
	var jobs []batchJob
	for i, p := range paths {
		fr := &result.Files[i]
		md, err := b.engine.InspectFile(p)
		if err != nil {
			fr.Err = err
			continue
		}
		fr.Output = filepath.Join(outDir, DecryptedName(md.OriginalFilename, p))
		if err := claim(claimed, fr.Output, p); err != nil {
			fr.Err = err
			continue
		}
		jobs = append(jobs, batchJob{result: fr, run: func() error {
			res, err := b.engine.DecryptFile(fr.Input, fr.Output, password, nil)
			fr.Decrypt = res
			return err
		}})
	}

	b.run(jobs, len(paths), progress)
	return result.tally(), nil
}

// EncryptFolder encrypts the regular files under dir that match opts
func (b *Batch) EncryptFolder(dir, outDir string, password []byte, opts FolderOptions, progress BatchProgress) (*BatchResult, error) {
	files, err := b.collectFiles(dir, opts)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &BatchResult{Message: NoFilesMessage}, nil
	}
	return b.EncryptFiles(files, outDir, password, progress)
}

// DecryptedName returns "<stem>_decrypted<ext>" for the original filename.
// When the container recorded no name the container path, less its
// .encrypted extension, is used instead.
func DecryptedName(originalFilename, containerPath string) string {
	name := filepath.Base(originalFilename)
	if originalFilename == "" {
		name = strings.TrimSuffix(filepath.Base(containerPath), EncryptedExtension)
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + decryptedSuffix + ext
}

func newBatchResult(paths []string) *BatchResult {
	r := &BatchResult{Total: len(paths), Files: make([]FileResult, len(paths))}
	for i, p := range paths {
		r.Files[i].Input = p
	}
	return r
}

func (r *BatchResult) tally() *BatchResult {
	r.Succeeded, r.Failed = 0, 0
	for _, f := range r.Files {
		if f.Err != nil {
			r.Failed++
		} else {
			r.Succeeded++
		}
	}
	return r
}

// claim records output for input, failing if an earlier file already uses it
func claim(claimed map[string]string, output, input string) error {
	key := filepath.Clean(output)
	if prev, ok := claimed[key]; ok {
		return NewValidationError("output", output, fmt.Sprintf("output path collides with %s", prev))
	}
	claimed[key] = input
	return nil
}

func (b *Batch) prepareOutDir(outDir string) error {
	if err := ValidateFilePath(outDir); err != nil {
		return err
	}
	if err := b.engine.fs.MkdirAll(outDir, 0755); err != nil {
		return NewIOError("mkdir", outDir, err)
	}
	return nil
}

// run processes jobs, in parallel when the batch is large enough. Each job
// writes only its own FileResult.
func (b *Batch) run(jobs []batchJob, total int, progress BatchProgress) {
	if len(jobs) == 0 {
		return
	}

	var mu sync.Mutex
	started := 0
	do := func(job batchJob) {
		mu.Lock()
		started++
		idx := started
		if progress != nil {
			b.report(progress, idx, total, filepath.Base(job.result.Input))
		}
		mu.Unlock()

		job.result.Err = b.runJob(job)
		if job.result.Err != nil {
			b.log.WithFields(logrus.Fields{"input": job.result.Input, "error": job.result.Err}).Warn("batch file failed")
		}
	}

	numWorkers := b.config.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	// Sequential processing
	if len(jobs) < b.config.MinFilesForParallel || numWorkers == 1 {
		for _, job := range jobs {
			do(job)
		}
		return
	}

	// Parallel processing
	var wg sync.WaitGroup
	jobChan := make(chan batchJob, len(jobs))
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				do(job)
			}
		}()
	}

	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)
	wg.Wait()
}

// runJob converts a panic in one file into that file's error
func (b *Batch) runJob(job batchJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s: %v", job.result.Input, r)
		}
	}()
	return job.run()
}

func (b *Batch) report(progress BatchProgress, index, total int, name string) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warnf("batch progress callback panicked: %v", r)
		}
	}()
	progress(index, total, name)
}

// collectFiles lists regular files under dir, sorted, filtered by opts
func (b *Batch) collectFiles(dir string, opts FolderOptions) ([]string, error) {
	fsys := b.engine.fs
	info, err := fsys.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &InputNotFoundError{Path: dir, Err: err}
		}
		return nil, NewIOError("stat", dir, err)
	}
	if !info.IsDir() {
		return nil, NewValidationError("folder", dir, "not a directory")
	}
	for _, pattern := range opts.Patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, NewValidationError("pattern", pattern, err.Error())
		}
	}

	var files []string
	pending := []string{dir}
	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]

		f, err := fsys.Open(current)
		if err != nil {
			return nil, NewIOError("open", current, err)
		}
		entries, err := f.Readdir(-1)
		f.Close()
		if err != nil {
			return nil, NewIOError("readdir", current, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if name == "." || name == ".." {
				continue
			}
			full := filepath.Join(current, name)
			switch {
			case entry.IsDir():
				if opts.Recursive {
					pending = append(pending, full)
				}
			case entry.Mode().IsRegular() && matchesAny(name, opts.Patterns):
				files = append(files, full)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

func matchesAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
