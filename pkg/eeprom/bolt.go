package eeprom

import (
	"bytes"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	bucketName = []byte("eeprom")
	areaKey    = []byte("area")
)

// Bolt keeps the configuration area in a bbolt database file. Every WriteBlock is
// one bbolt transaction.
type Bolt struct {
	db   *bbolt.DB
	size int
}

var _ Block = (*Bolt)(nil)

// OpenBolt opens or creates the database at path holding an area of size bytes.
func OpenBolt(path string, size int) (*Bolt, error) {
	db, err := bbolt.Open(path, 0644, bbolt.DefaultOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open eeprom %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		if cur := b.Get(areaKey); len(cur) == size {
			return nil
		} else if len(cur) > size {
			return b.Put(areaKey, append([]byte(nil), cur[:size]...))
		} else {
			area := bytes.Repeat([]byte{0xFF}, size)
			copy(area, cur)
			return b.Put(areaKey, area)
		}
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize eeprom %s: %w", path, err)
	}

	return &Bolt{db: db, size: size}, nil
}

// Size returns the area size in bytes.
func (e *Bolt) Size() int {
	return e.size
}

// ReadBlock copies len(p) bytes starting at offset into p.
func (e *Bolt) ReadBlock(offset int, p []byte) error {
	if err := checkRange(offset, len(p), e.size); err != nil {
		return err
	}
	return e.db.View(func(tx *bbolt.Tx) error {
		area := tx.Bucket(bucketName).Get(areaKey)
		copy(p, area[offset:])
		return nil
	})
}

// WriteBlock stores p at offset in a single transaction.
func (e *Bolt) WriteBlock(offset int, p []byte) error {
	if err := checkRange(offset, len(p), e.size); err != nil {
		return err
	}
	return e.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		area := append([]byte(nil), b.Get(areaKey)...)
		copy(area[offset:], p)
		return b.Put(areaKey, area)
	})
}

// Close closes the database.
func (e *Bolt) Close() error {
	return e.db.Close()
}
