package backup

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/znp-protocol/znp-go/pkg/nvram"
)

// ErrInvalidDocument is returned for documents that cannot be restored.
var ErrInvalidDocument = errors.New("invalid backup document")

// Document is an NVRAM backup: item name, then sub-id key, then hex value.
type Document map[string]map[string]string

// Len returns the number of items in the document.
func (d Document) Len() int {
	n := 0
	for _, group := range d {
		n += len(group)
	}
	return n
}

func (d Document) set(item nvram.ItemID, key string, value []byte) {
	name := item.String()
	group, ok := d[name]
	if !ok {
		group = make(map[string]string)
		d[name] = group
	}
	group[key] = hex.EncodeToString(value)
}

// SubIDKey returns the document key of a sub-id.
func SubIDKey(item nvram.ItemID, subID uint16) string {
	if item == nvram.ItemLegacy {
		return nvram.OsalID(subID).String()
	}
	return fmt.Sprintf("0x%04X", subID)
}

// ParseSubIDKey parses a document key as returned by SubIDKey.
func ParseSubIDKey(item nvram.ItemID, key string) (uint16, error) {
	if item == nvram.ItemLegacy {
		id, err := nvram.ParseOsalID(key)
		return uint16(id), err
	}
	if !strings.HasPrefix(key, "0x") {
		return 0, fmt.Errorf("sub-id %q is not hex", key)
	}
	v, err := strconv.ParseUint(key[2:], 16, 16)
	if err != nil {
		return 0, fmt.Errorf("sub-id %q: %w", key, err)
	}
	return uint16(v), nil
}

// Dump reads every known item of the session into a document. Missing items
// are left out, as are items the firmware refuses to disclose.
func Dump(ctx context.Context, nv *nvram.NVRAM, logger *slog.Logger) (Document, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	doc := make(Document)

	read := func(item nvram.ItemID, subID uint16) (bool, error) {
		value, err := nv.Read(ctx, item, subID)
		switch {
		case errors.Is(err, nvram.ErrItemNotFound):
			return false, nil
		case errors.Is(err, nvram.ErrSecurity):
			logger.Info("skipping undisclosable item", "item", item.String(), "sub_id", SubIDKey(item, subID))
			return true, nil
		case err != nil:
			return false, fmt.Errorf("reading %s %s: %w", item, SubIDKey(item, subID), err)
		}
		doc.set(item, SubIDKey(item, subID), value)
		return true, nil
	}

	for _, id := range nvram.NamedOsalIDs() {
		if _, err := read(nvram.ItemLegacy, uint16(id)); err != nil {
			return nil, err
		}
	}
	for _, r := range nvram.OsalRanges {
		for id := r.Start; id <= r.End; id++ {
			if _, err := read(nvram.ItemLegacy, uint16(id)); err != nil {
				return nil, err
			}
		}
	}

	if nv.Profile().ExtendedItems {
		for _, item := range nvram.ExtendedItems {
			for sub := 0; sub <= 0xFFFF; sub++ {
				found, err := read(item, uint16(sub))
				if err != nil {
					return nil, err
				}
				if !found {
					break
				}
			}
		}
	}

	logger.Debug("dumped NVRAM", "items", doc.Len())
	return doc, nil
}

// Restore writes every item of doc. Items are written in item and key order;
// the document is fully decoded before the first write.
func Restore(ctx context.Context, nv *nvram.NVRAM, doc Document) error {
	type entry struct {
		item  nvram.ItemID
		subID uint16
		value []byte
	}

	var entries []entry
	for _, name := range slices.Sorted(maps.Keys(doc)) {
		item, err := nvram.ParseItemID(name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		group := doc[name]
		for _, key := range slices.Sorted(maps.Keys(group)) {
			subID, err := ParseSubIDKey(item, key)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, name, err)
			}
			value, err := hex.DecodeString(group[key])
			if err != nil {
				return fmt.Errorf("%w: %s %s: %v", ErrInvalidDocument, name, key, err)
			}
			entries = append(entries, entry{item, subID, value})
		}
	}

	for _, e := range entries {
		if err := nv.Write(ctx, e.item, e.subID, e.value); err != nil {
			return fmt.Errorf("restoring %s %s: %w", e.item, SubIDKey(e.item, e.subID), err)
		}
	}
	return nil
}
