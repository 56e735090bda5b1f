package instance

import "encoding/json"

// wireInstance is the serialized shape of an Instance:
// {level, entity, score, time, provenance, tag?} with tag omitted when
// default and time omitted when undefined.
type wireInstance struct {
	Level      Level          `json:"level"`
	Entity     EntityID       `json:"entity"`
	Score      Score          `json:"score"`
	Time       *int64         `json:"time,omitempty"`
	Provenance []wireInstance `json:"provenance"`
	Tag        TagID          `json:"tag,omitempty"`
}

func toWire(i Instance) wireInstance {
	w := wireInstance{
		Level:  i.Level,
		Entity: i.Entity,
		Score:  i.Score,
		Tag:    i.Tag,
	}
	if i.HasTime {
		t := i.Time
		w.Time = &t
	}
	if i.Provenance != nil {
		w.Provenance = make([]wireInstance, len(i.Provenance))
		for idx, child := range i.Provenance {
			w.Provenance[idx] = toWire(child)
		}
	}
	return w
}

// MarshalJSON implements json.Marshaler, producing the wireInstance
// shape rather than a direct field-by-field dump of Instance.
func (i Instance) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(i))
}
