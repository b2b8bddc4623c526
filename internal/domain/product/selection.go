// internal/domain/product/selection.go
package product

import (
	"fmt"
	"slices"
)

// TogglePart adds the part to the selection, or removes it if already present
func TogglePart(sel Selection, partID string) Selection {
	return Selection{
		Parts:   toggle(sel.Parts, partID),
		Options: slices.Clone(sel.Options),
	}
}

// ToggleOption applies the option group rules of the product:
// ungrouped and multiple-choice options toggle freely, while picking an option
// of a single-choice group drops the other members of that group first.
func ToggleOption(p *Product, sel Selection, optionID string) Selection {
	next := Selection{Parts: slices.Clone(sel.Parts)}

	opt, ok := p.FindOption(optionID)
	if !ok || opt.GroupID == "" {
		next.Options = toggle(sel.Options, optionID)
		return next
	}

	group, ok := p.FindOptionGroup(opt.GroupID)
	if !ok {
		// Dangling group reference, nothing to toggle against
		next.Options = slices.Clone(sel.Options)
		return next
	}

	if group.Type != SelectionSingle {
		next.Options = toggle(sel.Options, optionID)
		return next
	}

	wasSelected := slices.Contains(sel.Options, optionID)
	for _, id := range sel.Options {
		if o, ok := p.FindOption(id); ok && o.GroupID == group.ID {
			continue
		}
		next.Options = append(next.Options, id)
	}
	if !wasSelected {
		next.Options = append(next.Options, optionID)
	}
	return next
}

// ValidateSelection checks that no single-choice group has more than one member selected.
// Ids unknown to the product are tolerated; they simply do not affect the price.
func ValidateSelection(p *Product, sel Selection) error {
	chosen := Dedupe(sel.Options)
	for _, g := range p.OptionGroups {
		if g.Type != SelectionSingle {
			continue
		}
		count := 0
		for _, id := range g.Options {
			if slices.Contains(chosen, id) {
				count++
			}
		}
		if count > 1 {
			return fmt.Errorf("%w: group %q allows a single option, got %d", ErrInvalidSelection, g.ID, count)
		}
	}
	return nil
}

// Dedupe returns the ids with duplicates removed, keeping first occurrences
func Dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toggle(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		out := make([]string, 0, len(ids))
		for _, v := range ids {
			if v != id {
				out = append(out, v)
			}
		}
		return out
	}
	return append(slices.Clone(ids), id)
}
