package models

// Slot is a bookable appointment time unit belonging to a doctor.
type Slot struct {
	ID   int    `json:"id"`
	Date string `json:"slot_date"`
	Time string `json:"slot_time"`
}

// Doctor is a care provider with zero or more bookable slots.
//
// Raw backend records carry slots under the alternate available_slots field;
// Normalize maps that onto the canonical Slots field. Only normalized doctors
// may be stored in a step's data or handed to other components.
type Doctor struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email,omitempty"`
	Specialty      string  `json:"specialty,omitempty"`
	Department     string  `json:"department,omitempty"`
	Qualification  string  `json:"qualification,omitempty"`
	Experience     string  `json:"experience,omitempty"`
	Rating         float64 `json:"rating,omitempty"`
	ImageURL       string  `json:"image_url,omitempty"`
	Slots          []Slot  `json:"slots,omitempty"`
	AvailableSlots []Slot  `json:"available_slots,omitempty"`
}

// Normalize returns the doctor with slots under the canonical field. A record
// that already exposes canonical slots is returned unchanged apart from the
// alternate field being cleared; normalization is idempotent.
func (d Doctor) Normalize() Doctor {
	if len(d.Slots) == 0 && len(d.AvailableSlots) > 0 {
		d.Slots = d.AvailableSlots
	}
	d.AvailableSlots = nil
	return d
}

// NormalizeDoctors normalizes a raw doctor list into a fresh slice.
func NormalizeDoctors(raw []Doctor) []Doctor {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Doctor, len(raw))
	for i, d := range raw {
		out[i] = d.Normalize()
	}
	return out
}

// FirstSlot returns the first slot of the doctor's normalized slot list, or
// false when the doctor has none.
func (d Doctor) FirstSlot() (Slot, bool) {
	n := d.Normalize()
	if len(n.Slots) == 0 {
		return Slot{}, false
	}
	return n.Slots[0], true
}
