package services

import (
	"encoding/json"
	"strings"
	"time"

	"seafarer/bosun/internal/fouling"
	gormModels "seafarer/bosun/internal/models/gorm"

	"github.com/tidwall/gjson"
)

// Upstream records arrive through several query paths with slightly
// different shapes: the listing endpoints nest vessel data under
// "vessel", while the GraphQL chunk queries extract the same fields to
// top-level aliases. Every extractor below therefore checks the nested
// location first and the flattened alias second.

func firstValue(rec []byte, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := gjson.GetBytes(rec, p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func firstString(rec []byte, paths ...string) string {
	v := firstValue(rec, paths...)
	if !v.Exists() {
		return ""
	}
	return v.String()
}

func stringPtr(rec []byte, paths ...string) *string {
	v := firstValue(rec, paths...)
	if !v.Exists() || v.String() == "" {
		return nil
	}
	s := v.String()
	return &s
}

// softDeleteStatusPaths are the payload locations a delete marker has
// been observed in, nested shapes and the chunk query's flattened
// workflowStatus alias alike. All are still checked; upstream has never
// confirmed which ones are current and which are legacy.
var softDeleteStatusPaths = []string{"status", "workflow_state.status", "workflowStatus", "fields.Status"}

// isSoftDeleted reports whether the record carries a delete flag or a
// "deleted" status in any known payload location.
func isSoftDeleted(rec []byte) bool {
	if gjson.GetBytes(rec, "deleted").Bool() {
		return true
	}
	for _, p := range softDeleteStatusPaths {
		if strings.EqualFold(gjson.GetBytes(rec, p).String(), "deleted") {
			return true
		}
	}
	return false
}

// componentEntry is one parsed rating entry of one inspection component.
type componentEntry struct {
	Level    int
	Rating   string
	Coverage float64
	Comments string
	Raw      []byte
}

// inspectionComponent is one parsed component with its rating entries.
type inspectionComponent struct {
	Name     string
	Category string
	Entries  []componentEntry
}

// extractComponents parses the inspection component array carried by a
// work item's vessel sub-record, if any.
func extractComponents(rec []byte) []inspectionComponent {
	list := firstValue(rec, "vessel.inspection.components", "components")
	if !list.IsArray() {
		return nil
	}

	var components []inspectionComponent
	list.ForEach(func(_, comp gjson.Result) bool {
		c := inspectionComponent{
			Name:     firstString([]byte(comp.Raw), "name", "component"),
			Category: comp.Get("category").String(),
		}

		ratings := comp.Get("ratings")
		if !ratings.IsArray() {
			ratings = comp.Get("rating_entries")
		}
		ratings.ForEach(func(_, entry gjson.Result) bool {
			c.Entries = append(c.Entries, componentEntry{
				Level:    int(firstValue([]byte(entry.Raw), "fouling_level.numeric", "level").Int()),
				Rating:   firstString([]byte(entry.Raw), "fouling_level.rating", "rating"),
				Coverage: firstValue([]byte(entry.Raw), "coverage_pct", "coverage").Float(),
				Comments: entry.Get("comments").String(),
				Raw:      []byte(entry.Raw),
			})
			return true
		})

		if c.Name != "" {
			components = append(components, c)
		}
		return true
	})
	return components
}

// toFoulingComponents converts parsed components into the calculator's
// input shape.
func toFoulingComponents(components []inspectionComponent) []fouling.Component {
	out := make([]fouling.Component, 0, len(components))
	for _, c := range components {
		fc := fouling.Component{Name: c.Name}
		for _, e := range c.Entries {
			fc.Entries = append(fc.Entries, fouling.RatingEntry{
				Level:    e.Level,
				Coverage: e.Coverage,
			})
		}
		out = append(out, fc)
	}
	return out
}

// buildWorkItem maps an opaque upstream record onto the typed WorkItem
// row, deriving fouling scores when the vessel carries component data.
func buildWorkItem(rec json.RawMessage, now time.Time) (*gormModels.WorkItem, []inspectionComponent) {
	item := &gormModels.WorkItem{
		PelagicID:    gjson.GetBytes(rec, "id").String(),
		WorkflowID:   firstString(rec, "workflow.id", "workflowId", "workflow_id"),
		Title:        firstString(rec, "title", "name"),
		Status:       firstString(rec, "status"),
		VesselID:     firstString(rec, "vessel.id", "vesselId"),
		VesselName:   firstString(rec, "vessel.name", "vesselName"),
		VesselMMSI:   stringPtr(rec, "vessel.particulars.mmsi", "vesselMmsi"),
		VesselIMO:    stringPtr(rec, "vessel.particulars.imo", "vesselImo"),
		Payload:      []byte(rec),
		LastSyncedAt: now,
	}

	components := extractComponents(rec)
	if len(components) > 0 {
		item.NavigabilityScore = fouling.NavigabilityScore(toFoulingComponents(components))
		item.HullPerformanceScore = fouling.HullPerformanceScore(toFoulingComponents(components))
	}

	return item, components
}

// buildAsset maps an opaque registry thing onto the typed Asset row.
func buildAsset(rec json.RawMessage, registryID string, now time.Time) *gormModels.Asset {
	return &gormModels.Asset{
		PelagicID:    gjson.GetBytes(rec, "id").String(),
		RegistryID:   registryID,
		Name:         firstString(rec, "name"),
		DisplayName:  firstString(rec, "display_name", "displayName"),
		MMSI:         stringPtr(rec, "particulars.mmsi", "mmsi"),
		IMO:          stringPtr(rec, "particulars.imo", "imo"),
		Pennant:      stringPtr(rec, "particulars.pennant", "pennant"),
		VesselClass:  firstString(rec, "classification.class", "vessel_class"),
		VesselType:   firstString(rec, "classification.type", "vessel_type"),
		Payload:      []byte(rec),
		LastSyncedAt: now,
	}
}

// dedupeByID drops records repeating an upstream id already seen; the
// first occurrence wins. Records without an id cannot be keyed at all
// and are reported back as malformed so runs count them as failed.
func dedupeByID(records []json.RawMessage) ([]json.RawMessage, int) {
	seen := make(map[string]bool, len(records))
	out := make([]json.RawMessage, 0, len(records))
	malformed := 0
	for _, rec := range records {
		id := gjson.GetBytes(rec, "id").String()
		if id == "" {
			malformed++
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, rec)
	}
	return out, malformed
}
