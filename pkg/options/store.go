package options

import (
	"fmt"

	"github.com/itohio/flashlog/pkg/eeprom"
)

// RecordSize is the size of the persisted record: one length byte followed by the
// canonical option line, padded with 0xFF.
const RecordSize = 88

// Store persists a Config in the configuration area.
type Store struct {
	blk eeprom.Block
}

// NewStore creates a Store over blk. The record lives at offset 0.
func NewStore(blk eeprom.Block) *Store {
	return &Store{blk: blk}
}

// Load reads and re-validates the persisted Config. Erased or corrupted records
// return ErrInvalidFormat.
func (s *Store) Load() (Config, error) {
	var rec [RecordSize]byte
	if err := s.blk.ReadBlock(0, rec[:]); err != nil {
		return Config{}, fmt.Errorf("failed to read options: %w", err)
	}

	n := int(rec[0])
	if n == 0 || n > RecordSize-1 {
		return Config{}, fmt.Errorf("stored length %d: %w", n, ErrInvalidFormat)
	}

	cfg, err := Parse(string(rec[1 : 1+n]))
	if err != nil {
		return Config{}, fmt.Errorf("stored options: %w", err)
	}
	return cfg, nil
}

// Save validates cfg and writes it as a single block.
func (s *Store) Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	line := cfg.String()
	if len(line) > RecordSize-1 {
		return fmt.Errorf("option line of %d bytes: %w", len(line), ErrInvalidFormat)
	}

	var rec [RecordSize]byte
	for i := range rec {
		rec[i] = 0xFF
	}
	rec[0] = byte(len(line))
	copy(rec[1:], line)

	if err := s.blk.WriteBlock(0, rec[:]); err != nil {
		return fmt.Errorf("failed to write options: %w", err)
	}
	return nil
}
