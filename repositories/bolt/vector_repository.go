// Package bolt implements durable vector storage on a single-file bbolt
// database. Records are keyed by a monotonic sequence so a full load replays
// them in insertion order; a secondary index maps chunk IDs to their sequence
// for in-place upserts.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/retrieval-gateway/models"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var (
	bucketVectors = []byte("vectors")    // seq -> JSON vector record
	bucketChunks  = []byte("chunk_seqs") // chunk ID -> seq
)

// VectorRepository persists vector records in a bbolt file
type VectorRepository struct {
	db     *bbolt.DB
	logger *zap.Logger
}

// NewVectorRepository opens (or creates) the database file at path
func NewVectorRepository(path string, logger *zap.Logger) (*VectorRepository, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database at %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketVectors); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketChunks)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize vector buckets: %w", err)
	}

	return &VectorRepository{db: db, logger: logger}, nil
}

// SaveBatch upserts the records in one transaction. New chunks get the next
// sequence number; existing chunks are rewritten under their original sequence
// so load order is stable across updates.
func (r *VectorRepository) SaveBatch(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		vectors := tx.Bucket(bucketVectors)
		chunks := tx.Bucket(bucketChunks)

		for i := range records {
			rec := &records[i]
			chunkKey := rec.Chunk.ID[:]

			var seqKey []byte
			if existing := chunks.Get(chunkKey); existing != nil {
				seqKey = existing
			} else {
				seq, err := vectors.NextSequence()
				if err != nil {
					return fmt.Errorf("failed to allocate sequence: %w", err)
				}
				seqKey = make([]byte, 8)
				binary.BigEndian.PutUint64(seqKey, seq)
				if err := chunks.Put(chunkKey, seqKey); err != nil {
					return fmt.Errorf("failed to index chunk %s: %w", rec.Chunk.ID, err)
				}
			}

			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to encode record for chunk %s: %w", rec.Chunk.ID, err)
			}
			if err := vectors.Put(seqKey, data); err != nil {
				return fmt.Errorf("failed to write record for chunk %s: %w", rec.Chunk.ID, err)
			}
		}
		return nil
	})
}

// LoadAll returns every record in insertion order
func (r *VectorRepository) LoadAll(ctx context.Context) ([]models.VectorRecord, error) {
	var records []models.VectorRecord

	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec models.VectorRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode stored record: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteDocument removes every record belonging to documentID
func (r *VectorRepository) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		vectors := tx.Bucket(bucketVectors)
		chunks := tx.Bucket(bucketChunks)

		type doomed struct{ seqKey, chunkKey []byte }
		var victims []doomed

		err := vectors.ForEach(func(k, v []byte) error {
			var rec models.VectorRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode stored record: %w", err)
			}
			if rec.Chunk.DocumentID == documentID {
				seqKey := make([]byte, len(k))
				copy(seqKey, k)
				victims = append(victims, doomed{seqKey: seqKey, chunkKey: rec.Chunk.ID[:]})
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, v := range victims {
			if err := vectors.Delete(v.seqKey); err != nil {
				return err
			}
			if err := chunks.Delete(v.chunkKey); err != nil {
				return err
			}
		}
		r.logger.Debug("deleted document vectors",
			zap.String("document_id", documentID.String()),
			zap.Int("records", len(victims)))
		return nil
	})
}

// DeleteAll drops and recreates both buckets
func (r *VectorRepository) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketVectors, bucketChunks} {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("failed to drop bucket %s: %w", name, err)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("failed to recreate bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Close closes the database file
func (r *VectorRepository) Close() error {
	return r.db.Close()
}
