package services

import "davo_admin/models"

// ReconcileMarket возвращает новый срез, в котором у аптеки с данным ID
// поле field равно value. Если аптеки нет, возвращается копия без изменений
// и found == false; новая запись никогда не добавляется.
func ReconcileMarket(records []models.Market, id int64, field models.EditableField, value bool) (result []models.Market, found bool) {
	result = make([]models.Market, len(records))
	copy(result, records)

	for i := range result {
		if result[i].ID != id {
			continue
		}
		updated, err := result[i].WithField(field, value)
		if err != nil {
			return result, false
		}
		result[i] = updated
		return result, true
	}
	return result, false
}
