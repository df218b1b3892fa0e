package board

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var itemTypes = []interface{}{
	ItemPhoto, ItemNote, ItemAudio, ItemMedia, ItemDoodle, ItemGif,
}

// Validate checks the structural invariants of an item arriving from the
// wire or a persistence payload before it touches the store.
func (it Item) Validate() error {
	return validation.ValidateStruct(&it,
		validation.Field(&it.ID, validation.Required),
		validation.Field(&it.Type, validation.Required, validation.In(itemTypes...)),
		validation.Field(&it.Data, validation.By(func(interface{}) error {
			return validateData(it.Type, it.Data)
		})),
	)
}

func validateData(typ ItemType, data ItemData) error {
	switch typ {
	case ItemPhoto, ItemGif:
		return validation.ValidateStruct(&data,
			validation.Field(&data.ImageURL, validation.Required),
		)
	case ItemNote:
		// Empty notes are allowed; the editor creates them blank.
		return nil
	case ItemAudio:
		return validation.ValidateStruct(&data,
			validation.Field(&data.AudioURL, validation.Required),
		)
	case ItemMedia:
		return validation.ValidateStruct(&data,
			validation.Field(&data.MediaURL, validation.Required),
		)
	case ItemDoodle:
		return validation.ValidateStruct(&data,
			validation.Field(&data.Points, validation.Required, validation.Length(2, 0)),
		)
	}
	return nil
}
