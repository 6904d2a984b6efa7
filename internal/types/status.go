// internal/types/status.go
package types

// Severity определяет уровень важности уведомления для пользователя.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Icon - иконка строки описания уведомления.
type Icon string

const (
	IconSuccess Icon = "success"
	IconInfo    Icon = "info"
	IconError   Icon = "error"
	IconLoading Icon = "loading"
)

// Notice - одна строка описания уведомления: {value, icon, txid?}.
type Notice struct {
	Value string `json:"value"`
	Icon  Icon   `json:"icon"`
	TxID  string `json:"txid,omitempty"`
}
