package provider

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jmespath/go-jmespath"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/models"
)

// parsePage extracts records and the next cursor from one page.
// Records without a phone number are attributed to the requested one.
func (c *Client) parsePage(body []byte, phoneNumber string) ([]models.ExternalMessageRecord, string, error) {
	if len(body) == 0 {
		return nil, "", nil
	}

	var page any
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", fmt.Errorf("failed to parse JSON: %w", err)
	}

	rawItems, err := c.paths.items.Search(page)
	if err != nil {
		return nil, "", fmt.Errorf("failed to locate messages: %w", err)
	}
	if rawItems == nil {
		// A bare array is a single page of messages. An object whose
		// message list is missing or empty (|| treats [] as false) is an
		// empty page, not a malformed one.
		if _, isArray := page.([]any); isArray {
			rawItems = page
		} else {
			rawItems = []any{}
		}
	}
	items, ok := rawItems.([]any)
	if !ok {
		return nil, "", fmt.Errorf("provider messages are %T, expected an array", rawItems)
	}

	records := make([]models.ExternalMessageRecord, 0, len(items))
	for i, item := range items {
		record, err := c.parseRecord(item)
		if err != nil {
			return nil, "", fmt.Errorf("message %d: %w", i, err)
		}
		if record.PhoneNumber == "" {
			record.PhoneNumber = phoneNumber
		}
		records = append(records, record)
	}

	cursor := ""
	if _, isArray := page.([]any); !isArray {
		rawCursor, err := c.paths.cursor.Search(page)
		if err != nil {
			return nil, "", fmt.Errorf("failed to locate cursor: %w", err)
		}
		cursor = stringValue(rawCursor)
	}

	return records, cursor, nil
}

func (c *Client) parseRecord(item any) (models.ExternalMessageRecord, error) {
	var record models.ExternalMessageRecord

	text, err := search(c.paths.text, item)
	if err != nil {
		return record, err
	}
	rawTimestamp, err := search(c.paths.timestamp, item)
	if err != nil {
		return record, err
	}
	phone, err := search(c.paths.phone, item)
	if err != nil {
		return record, err
	}
	direction, err := search(c.paths.direction, item)
	if err != nil {
		return record, err
	}
	hasMedia, err := search(c.paths.hasMedia, item)
	if err != nil {
		return record, err
	}

	timestamp, err := models.ParseTimestampValue(rawTimestamp)
	if err != nil {
		return record, err
	}

	record.Text = stringValue(text)
	record.Timestamp = timestamp
	record.PhoneNumber = stringValue(phone)
	record.Direction = stringValue(direction)
	record.HasMedia, _ = hasMedia.(bool)
	return record, nil
}

func search(expr *jmespath.JMESPath, data any) (any, error) {
	if _, ok := data.(map[string]any); !ok {
		return nil, fmt.Errorf("message is %T, expected an object", data)
	}
	return expr.Search(data)
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
