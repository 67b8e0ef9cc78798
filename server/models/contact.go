package models

// Contact is always fully populated; 'favorite' is the only attribute
// that can be flipped on its own.
type Contact struct {
	BaseModel
	Name     string `json:"name" validate:"required" gorm:"not null"`
	Email    string `json:"email" validate:"required,email" gorm:"not null"`
	Phone    string `json:"phone" validate:"required" gorm:"not null"`
	Favorite bool   `json:"favorite" gorm:"not null;default:false"`
}

var contactUpdatableFields = []string{"name", "email", "phone", "favorite"}

func AllContacts() ([]Contact, error) {
	// TODO: Add pagination
	contacts := []Contact{}
	err := db.Limit(500).Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

func FindContact(id interface{}) (*Contact, error) {
	contact := Contact{}
	err := db.First(&contact, "id = ?", id).Error
	if err != nil {
		return nil, refineError(err)
	}

	return &contact, nil
}

func CreateContact(contact *Contact) error {
	return db.Create(contact).Error
}

// Update applies 'data' to the contact record and reloads the receiver,
// so callers always see the post-update entity. Unknown fields are
// ignored.
func (contact *Contact) Update(data map[string]interface{}) error {
	err := db.Model(contact).Select(contactUpdatableFields).Updates(data).Error
	if err != nil {
		return err
	}

	return refineError(db.First(contact, "id = ?", contact.ID).Error)
}

// DeleteContact removes the contact, reporting ErrNotFound when no row
// matched.
func DeleteContact(id interface{}) error {
	result := db.Delete(&Contact{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
