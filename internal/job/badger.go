package job

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Compile-time check that BadgerRepository implements Repository.
var _ Repository = (*BadgerRepository)(nil)

// jobKeyPrefix namespaces job records inside the database.
var jobKeyPrefix = []byte("job:")

// BadgerOptions configures a BadgerRepository.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	// Useful for testing with a real badger engine.
	InMemory bool

	// Logger receives badger warnings and errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// BadgerRepository persists jobs as msgpack records in BadgerDB,
// so uploaded and completed jobs survive a restart.
type BadgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository opens (or creates) the job database.
func NewBadgerRepository(opts BadgerOptions) (*BadgerRepository, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("job: BadgerOptions.Dir is required for on-disk mode")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{logger: logger})
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open job database: %w", err)
	}
	return &BadgerRepository{db: db}, nil
}

// Save encodes a snapshot of job and writes it under its ID.
func (r *BadgerRepository) Save(_ context.Context, job *Job) error {
	data, err := msgpack.Marshal(job.Clone())
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(jobKey(job.ID), data)
	})
}

// FindByID loads a job by its ID.
func (r *BadgerRepository) FindByID(_ context.Context, id string) (*Job, error) {
	var job *Job
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(jobKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			job, err = decodeJob(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// List returns every stored job ordered by creation time.
func (r *BadgerRepository) List(_ context.Context) ([]*Job, error) {
	var jobs []*Job
	err := r.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = jobKeyPrefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(jobKeyPrefix); it.ValidForPrefix(jobKeyPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				job, err := decodeJob(val)
				if err != nil {
					return err
				}
				jobs = append(jobs, job)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(jobs, func(a, b *Job) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	if jobs == nil {
		jobs = []*Job{}
	}
	return jobs, nil
}

// Delete removes a job record.
func (r *BadgerRepository) Delete(_ context.Context, id string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(jobKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrJobNotFound
			}
			return err
		}
		return txn.Delete(jobKey(id))
	})
}

// Close flushes and closes the database.
func (r *BadgerRepository) Close() error {
	return r.db.Close()
}

func jobKey(id string) []byte {
	return append(slices.Clone(jobKeyPrefix), id...)
}

func decodeJob(val []byte) (*Job, error) {
	var job Job
	if err := msgpack.Unmarshal(val, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// badgerLogger routes badger warnings and errors to slog, dropping info and debug output.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...any) {
	l.logger.Error(fmt.Sprintf(f, v...), slog.String("component", "badger"))
}

func (l badgerLogger) Warningf(f string, v ...any) {
	l.logger.Warn(fmt.Sprintf(f, v...), slog.String("component", "badger"))
}

func (badgerLogger) Infof(string, ...any)  {}
func (badgerLogger) Debugf(string, ...any) {}
