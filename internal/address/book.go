// internal/address/book.go

// Package address keeps a user's saved shipping addresses and the rule that
// a non-empty book has exactly one default address.
package address

import (
	"sort"
	"strings"
	"time"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/validation"
)

// Diff is the minimal set of records a mutation touched: the caller writes
// Put and deletes Deleted, nothing else.
type Diff struct {
	Put     []models.Address
	Deleted []string
}

func (d Diff) Empty() bool {
	return len(d.Put) == 0 && len(d.Deleted) == 0
}

// Patch holds optional field updates; nil means unchanged.
type Patch struct {
	FullName  *string `json:"full_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Line      *string `json:"address,omitempty"`
	City      *string `json:"city,omitempty"`
	State     *string `json:"state,omitempty"`
	ZipCode   *string `json:"zip_code,omitempty"`
	Country   *string `json:"country,omitempty"`
	IsDefault *bool   `json:"is_default,omitempty"`
}

// Book is one user's address collection, in insertion order.
type Book struct {
	userID    string
	addresses []models.Address
	now       func() time.Time
	newID     func() string
}

func NewBook(userID string) *Book {
	return &Book{
		userID: userID,
		now:    time.Now,
		newID:  models.NewID,
	}
}

func (b *Book) WithClock(now func() time.Time) *Book {
	b.now = now
	return b
}

func (b *Book) WithIDGenerator(newID func() string) *Book {
	b.newID = newID
	return b
}

// Add stores addr. The first address is always the default; a new default
// clears the flag on every other address.
func (b *Book) Add(addr models.Address) (models.Address, Diff, error) {
	addr = trim(addr)
	if err := validation.Check(addr, "address.invalid"); err != nil {
		return models.Address{}, Diff{}, err
	}

	now := b.now()
	before := b.snapshot()
	working := b.clone()

	if addr.ID == "" {
		addr.ID = b.newID()
	}
	if _, exists := before[addr.ID]; exists {
		return models.Address{}, Diff{}, models.NewDomainError(models.KindConflict, "address.exists", "address "+addr.ID+" already exists")
	}
	addr.UserID = b.userID
	addr.CreatedAt = now
	addr.UpdatedAt = now

	if len(working) == 0 {
		addr.IsDefault = true
	} else if addr.IsDefault {
		clearDefaults(working)
	}
	working = append(working, addr)

	diff := b.commit(working, before, now)
	return addr, diff, nil
}

// Update applies patch to address id. Setting IsDefault clears it elsewhere;
// unsetting it on the current default hands the flag to the earliest other
// address, or keeps it when this is the only address.
func (b *Book) Update(id string, patch Patch) (models.Address, Diff, error) {
	idx := b.indexOf(id)
	if idx < 0 {
		return models.Address{}, Diff{}, models.NewNotFound("address", id)
	}

	now := b.now()
	before := b.snapshot()
	working := b.clone()

	target := applyPatch(working[idx], patch)
	if err := validation.Check(target, "address.invalid"); err != nil {
		return models.Address{}, Diff{}, err
	}
	working[idx] = target

	if patch.IsDefault != nil {
		if *patch.IsDefault {
			clearDefaults(working)
			working[idx].IsDefault = true
		} else if before[id].IsDefault {
			working[idx].IsDefault = false
			if promoted := earliest(working, id); promoted >= 0 {
				working[promoted].IsDefault = true
			} else {
				working[idx].IsDefault = true
			}
		}
	}

	diff := b.commit(working, before, now)
	updated, _ := b.Get(id)
	return updated, diff, nil
}

// Remove deletes address id. When it was the default, the earliest created
// remaining address becomes the default in the same diff.
func (b *Book) Remove(id string) (Diff, error) {
	idx := b.indexOf(id)
	if idx < 0 {
		return Diff{}, models.NewNotFound("address", id)
	}

	now := b.now()
	before := b.snapshot()
	working := b.clone()
	wasDefault := working[idx].IsDefault
	working = append(working[:idx], working[idx+1:]...)

	if wasDefault && len(working) > 0 {
		working[earliest(working, "")].IsDefault = true
	}

	return b.commit(working, before, now), nil
}

// SetDefault makes id the only default address.
func (b *Book) SetDefault(id string) (models.Address, Diff, error) {
	idx := b.indexOf(id)
	if idx < 0 {
		return models.Address{}, Diff{}, models.NewNotFound("address", id)
	}

	now := b.now()
	before := b.snapshot()
	working := b.clone()
	clearDefaults(working)
	working[idx].IsDefault = true

	diff := b.commit(working, before, now)
	return b.addresses[idx], diff, nil
}

// Default returns the current default address, if any.
func (b *Book) Default() (models.Address, bool) {
	for _, addr := range b.addresses {
		if addr.IsDefault {
			return addr, true
		}
	}
	return models.Address{}, false
}

func (b *Book) Get(id string) (models.Address, bool) {
	idx := b.indexOf(id)
	if idx < 0 {
		return models.Address{}, false
	}
	return b.addresses[idx], true
}

func (b *Book) List() []models.Address {
	return b.clone()
}

func (b *Book) Len() int {
	return len(b.addresses)
}

// ReplaceAll installs an externally supplied snapshot as-is, ordered by
// CreatedAt. It does not enforce the default rule; call Repair for that.
func (b *Book) ReplaceAll(addresses []models.Address) {
	replaced := make([]models.Address, 0, len(addresses))
	seen := make(map[string]int, len(addresses))
	for _, addr := range addresses {
		if i, dup := seen[addr.ID]; dup {
			replaced[i] = addr
			continue
		}
		seen[addr.ID] = len(replaced)
		replaced = append(replaced, addr)
	}
	sort.SliceStable(replaced, func(i, j int) bool {
		return replaced[i].CreatedAt.Before(replaced[j].CreatedAt)
	})
	b.addresses = replaced
}

// Repair restores the single-default rule after a snapshot written by
// another device left zero or several defaults. The earliest default (or
// the earliest address when none is flagged) wins.
func (b *Book) Repair() Diff {
	if len(b.addresses) == 0 {
		return Diff{}
	}

	now := b.now()
	before := b.snapshot()
	working := b.clone()

	keep := -1
	for i, addr := range working {
		if addr.IsDefault {
			keep = i
			break
		}
	}
	if keep < 0 {
		keep = earliest(working, "")
	}
	clearDefaults(working)
	working[keep].IsDefault = true

	return b.commit(working, before, now)
}

// commit installs working, stamps UpdatedAt on changed records and returns
// only those changes.
func (b *Book) commit(working []models.Address, before map[string]models.Address, now time.Time) Diff {
	var diff Diff
	remaining := make(map[string]bool, len(working))

	for i := range working {
		addr := working[i]
		remaining[addr.ID] = true
		prev, existed := before[addr.ID]
		if existed && prev == addr {
			continue
		}
		if existed {
			working[i].UpdatedAt = now
		}
		diff.Put = append(diff.Put, working[i])
	}

	for _, addr := range b.addresses {
		if !remaining[addr.ID] {
			diff.Deleted = append(diff.Deleted, addr.ID)
		}
	}

	b.addresses = working
	return diff
}

func (b *Book) snapshot() map[string]models.Address {
	out := make(map[string]models.Address, len(b.addresses))
	for _, addr := range b.addresses {
		out[addr.ID] = addr
	}
	return out
}

func (b *Book) clone() []models.Address {
	out := make([]models.Address, len(b.addresses))
	copy(out, b.addresses)
	return out
}

func (b *Book) indexOf(id string) int {
	for i, addr := range b.addresses {
		if addr.ID == id {
			return i
		}
	}
	return -1
}

func clearDefaults(addresses []models.Address) {
	for i := range addresses {
		addresses[i].IsDefault = false
	}
}

// earliest returns the index of the oldest address other than skipID, with
// ties going to the lower index, or -1.
func earliest(addresses []models.Address, skipID string) int {
	best := -1
	for i, addr := range addresses {
		if addr.ID == skipID {
			continue
		}
		if best < 0 || addr.CreatedAt.Before(addresses[best].CreatedAt) {
			best = i
		}
	}
	return best
}

func applyPatch(addr models.Address, p Patch) models.Address {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&addr.FullName, p.FullName)
	set(&addr.Phone, p.Phone)
	set(&addr.Line, p.Line)
	set(&addr.City, p.City)
	set(&addr.State, p.State)
	set(&addr.ZipCode, p.ZipCode)
	set(&addr.Country, p.Country)
	return addr
}

func trim(addr models.Address) models.Address {
	addr.FullName = strings.TrimSpace(addr.FullName)
	addr.Phone = strings.TrimSpace(addr.Phone)
	addr.Line = strings.TrimSpace(addr.Line)
	addr.City = strings.TrimSpace(addr.City)
	addr.State = strings.TrimSpace(addr.State)
	addr.ZipCode = strings.TrimSpace(addr.ZipCode)
	addr.Country = strings.TrimSpace(addr.Country)
	return addr
}
