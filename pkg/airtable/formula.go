package airtable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FieldEquals строит формулу {field} = 'value'
func FieldEquals(field, value string) string {
	return fmt.Sprintf("{%s} = '%s'", field, escapeFormulaString(value))
}

// FieldEqualsNumber строит формулу {field} = n
func FieldEqualsNumber(field string, n int) string {
	return fmt.Sprintf("{%s} = %d", field, n)
}

// FieldIsTrue строит формулу для поля-флажка {field} = TRUE()
func FieldIsTrue(field string) string {
	return fmt.Sprintf("{%s} = TRUE()", field)
}

func escapeFormulaString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// FlexString — строковое поле, которое в таблице может храниться числом
type FlexString string

// UnmarshalJSON принимает строку, число или null
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: unsupported value %s", string(data))
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

// String возвращает значение как string
func (f FlexString) String() string {
	return string(f)
}
