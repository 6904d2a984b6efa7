// internal/transaction/status.go
package transaction

import (
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/serum-sender/internal/types"
)

// StatusReporter получает синхронные уведомления о фазах отправки.
type StatusReporter interface {
	SetTitle(title string)
	SetDescription(entries []types.Notice)
	SetVisible(visible bool)
	SetSeverity(severity types.Severity)
}

// NopReporter игнорирует все уведомления.
type NopReporter struct{}

func (NopReporter) SetTitle(string)               {}
func (NopReporter) SetDescription([]types.Notice) {}
func (NopReporter) SetVisible(bool)               {}
func (NopReporter) SetSeverity(types.Severity)    {}

// statusFlow проводит репортер через фазы sending -> sent -> confirming -> terminal.
// Терминальный отчёт выдаётся не более одного раза.
type statusFlow struct {
	reporter StatusReporter
	opts     Options
	terminal sync.Once
}

func newStatusFlow(opts Options) *statusFlow {
	return &statusFlow{reporter: opts.Reporter, opts: opts}
}

func (f *statusFlow) sending() {
	f.report(f.opts.SendingMessage, types.SeverityInfo,
		types.Notice{Value: "Sending transaction...", Icon: types.IconLoading})
}

func (f *statusFlow) sent(sig solana.Signature) {
	f.report(f.opts.SentMessage, types.SeverityInfo,
		types.Notice{Value: "Transaction submitted", Icon: types.IconSuccess, TxID: sig.String()})
}

func (f *statusFlow) confirming(sig solana.Signature) {
	f.report(f.opts.ConfirmingMessage, types.SeverityInfo,
		types.Notice{Value: "Awaiting confirmation...", Icon: types.IconLoading, TxID: sig.String()})
}

// finish выдаёт терминальный отчёт по результату. Возвращает false, если отчёт уже был.
func (f *statusFlow) finish(o Outcome) bool {
	reported := false
	f.terminal.Do(func() {
		reported = true
		switch o.Kind {
		case OutcomeConfirmed:
			f.report(f.opts.SuccessMessage, types.SeveritySuccess,
				types.Notice{Value: "Transaction confirmed", Icon: types.IconSuccess, TxID: o.Signature.String()})
		case OutcomeTimedOut:
			f.report("Timed out awaiting confirmation on transaction", types.SeverityWarning,
				types.Notice{Value: "Transaction may still land; check the explorer", Icon: types.IconInfo, TxID: txid(o.Signature)})
		case OutcomeProgramError:
			f.report("Transaction failed", types.SeverityError,
				types.Notice{Value: o.Message, Icon: types.IconError, TxID: txid(o.Signature)})
		case OutcomeRejectedByWallet:
			f.report("Transaction cancelled", types.SeverityError,
				types.Notice{Value: "Wallet rejected the transaction", Icon: types.IconError})
		}
	})
	return reported
}

// abort выдаёт терминальный отчёт об ошибке до отправки (blockhash, валидация).
func (f *statusFlow) abort(err error) {
	f.terminal.Do(func() {
		f.report("Transaction failed", types.SeverityError,
			types.Notice{Value: err.Error(), Icon: types.IconError})
	})
}

// report выставляет фазу целиком. Описание меняется последним: подписчики
// считают его признаком завершённой фазы.
func (f *statusFlow) report(title string, severity types.Severity, notices ...types.Notice) {
	f.reporter.SetTitle(title)
	f.reporter.SetSeverity(severity)
	f.reporter.SetVisible(true)
	f.reporter.SetDescription(notices)
}

func txid(sig solana.Signature) string {
	if sig.IsZero() {
		return ""
	}
	return sig.String()
}
