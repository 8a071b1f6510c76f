package history

import (
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

// Lookup rebuilds a queue item for a logged entry, with fresh dates.
type Lookup func(e Entry) (model.PrintableItem, bool)

// ReprintQueue turns a session back into a print queue in log order. Entries
// the lookup no longer knows are returned by name.
func ReprintQueue(s Session, lookup Lookup) (items []model.PrintableItem, missing []string) {
	for _, e := range s.Entries {
		item, ok := lookup(e)
		if !ok {
			missing = append(missing, e.Details.ItemName)
			continue
		}
		if e.Details.ItemID != "" && item.ID == "" {
			item.ID = e.Details.ItemID
		}
		items = append(items, item)
	}
	return items, missing
}
