package database

import (
	"time"

	"gorm.io/gorm"
)

// GetAlertByUUID returns an alert by its UUID
func GetAlertByUUID(db *gorm.DB, uuid string) (*Alert, error) {
	var alert Alert
	if err := db.Where("uuid = ?", uuid).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// AlertsByGroup returns all member alerts of a group in insertion order
func AlertsByGroup(db *gorm.DB, groupID uint) ([]Alert, error) {
	var alerts []Alert
	err := db.Where("correlation_group_id = ?", groupID).Order("id ASC").Find(&alerts).Error
	return alerts, err
}

// GetGroupByUUID returns a correlation group by its UUID
func GetGroupByUUID(db *gorm.DB, uuid string) (*CorrelationGroup, error) {
	var group CorrelationGroup
	if err := db.Where("uuid = ?", uuid).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// OpenGroupsSince returns all OPEN groups whose last member arrived at or
// after the cutoff, most recently updated first. Ordering matters: the
// engine's tie-break picks the first group at equal scores.
func OpenGroupsSince(db *gorm.DB, cutoff time.Time) ([]CorrelationGroup, error) {
	var groups []CorrelationGroup
	err := db.Where("status = ? AND last_member_at >= ?", GroupStatusOpen, cutoff).
		Order("last_member_at DESC").Find(&groups).Error
	return groups, err
}

// StaleOpenGroups returns OPEN groups whose last member is older than the cutoff
func StaleOpenGroups(db *gorm.DB, cutoff time.Time) ([]CorrelationGroup, error) {
	var groups []CorrelationGroup
	err := db.Where("status = ? AND last_member_at < ?", GroupStatusOpen, cutoff).
		Find(&groups).Error
	return groups, err
}

// GetRCAByUUID returns an RCA by its UUID
func GetRCAByUUID(db *gorm.DB, uuid string) (*RCA, error) {
	var rca RCA
	if err := db.Where("uuid = ?", uuid).First(&rca).Error; err != nil {
		return nil, err
	}
	return &rca, nil
}

// RCAsByStatus returns one page of RCAs matching the filter, newest first.
// Empty statuses means any status; activeOnly keeps only the live version of
// each group.
func RCAsByStatus(db *gorm.DB, statuses []RCAStatus, activeOnly bool, limit, offset int) ([]RCA, error) {
	var rcas []RCA
	q := rcaFilter(db, statuses, activeOnly).Order("generated_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&rcas).Error
	return rcas, err
}

// CountRCAs counts the RCAs matching the same filter as RCAsByStatus
func CountRCAs(db *gorm.DB, statuses []RCAStatus, activeOnly bool) (int64, error) {
	var total int64
	err := rcaFilter(db, statuses, activeOnly).Count(&total).Error
	return total, err
}

func rcaFilter(db *gorm.DB, statuses []RCAStatus, activeOnly bool) *gorm.DB {
	q := db.Model(&RCA{})
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	return q
}

// ActiveRCAForGroup returns the active RCA version for a group, if any
func ActiveRCAForGroup(db *gorm.DB, groupID uint) (*RCA, error) {
	var rca RCA
	if err := db.Where("correlation_group_id = ? AND active = ?", groupID, true).First(&rca).Error; err != nil {
		return nil, err
	}
	return &rca, nil
}

// NextRCAVersion returns the version number the next RCA for a group should carry
func NextRCAVersion(db *gorm.DB, groupID uint) (int, error) {
	var max int
	err := db.Model(&RCA{}).Where("correlation_group_id = ?", groupID).
		Select("COALESCE(MAX(version), 0)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
