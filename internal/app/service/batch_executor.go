package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"
	"airdrop_multisend/internal/pkg/metrics"
	"airdrop_multisend/internal/pkg/utils"

	"github.com/google/uuid"
)

const (
	defaultSubmitTimeout  = 2 * time.Minute
	defaultConfirmTimeout = 10 * time.Minute
)

// BatchRequest is one multisend invocation.
type BatchRequest struct {
	Mode          entity.TransferMode
	Recipients    []entity.Recipient
	TokenContract string
}

// ExecutorConfig holds per-call deadlines.
type ExecutorConfig struct {
	SubmitTimeout  time.Duration
	ConfirmTimeout time.Duration
}

// ProgressFunc receives every status change of every recipient.
type ProgressFunc func(entity.TransferResult)

// BatchExecutor sends one transfer per recipient, strictly in order, each one confirmed
// before the next is submitted. Only one batch runs at a time.
type BatchExecutor struct {
	sessions port.SessionSource
	tokens   *TokenResolver
	balances *BalanceReader
	encode   port.TransferEncoder
	cfg      ExecutorConfig
	logger   port.Logger
	metrics  *metrics.Collector

	inFlight atomic.Bool
}

// NewBatchExecutor creates a BatchExecutor.
func NewBatchExecutor(
	sessions port.SessionSource,
	tokens *TokenResolver,
	balances *BalanceReader,
	encode port.TransferEncoder,
	cfg ExecutorConfig,
	logger port.Logger,
	m *metrics.Collector,
) *BatchExecutor {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}
	return &BatchExecutor{
		sessions: sessions,
		tokens:   tokens,
		balances: balances,
		encode:   encode,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// InFlight reports whether a batch is currently running.
func (e *BatchExecutor) InFlight() bool {
	return e.inFlight.Load()
}

// Execute runs the batch. Precondition failures return a nil report and no transfer is
// attempted. Once sending has started the report always holds one result per recipient;
// a cancelled context or a changed connection marks the remaining recipients failed and
// the report is returned together with the cause.
func (e *BatchExecutor) Execute(ctx context.Context, req BatchRequest, progress ProgressFunc) (*entity.BatchReport, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, entity.ErrBatchInFlight
	}
	defer e.inFlight.Store(false)

	if progress == nil {
		progress = func(entity.TransferResult) {}
	}

	session, err := e.sessions.Session()
	if err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		mode = entity.NativeTransfer
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidMode, mode)
	}
	if len(req.Recipients) == 0 {
		return nil, entity.ErrEmptyRecipients
	}
	contract := strings.TrimSpace(req.TokenContract)
	if mode == entity.TokenTransfer && contract == "" {
		return nil, entity.ErrTokenContractRequired
	}
	if session.Network == nil {
		return nil, &entity.UnsupportedNetworkError{ChainID: session.ChainID}
	}
	if session.Reader == nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrRPCUnavailable, session.Network.Name)
	}

	log := e.logger.With("chain_id", session.ChainID, "mode", string(mode))
	decimals := session.Network.Decimals
	var token *entity.TokenInfo
	if mode == entity.TokenTransfer {
		info, err := e.tokens.Resolve(ctx, contract, session.Reader)
		if err != nil {
			return nil, err
		}
		token = &info
		decimals = info.Decimals
	}

	report := &entity.BatchReport{
		ID:        uuid.New(),
		Mode:      mode,
		ChainID:   session.ChainID,
		From:      session.Account,
		Token:     token,
		Results:   make([]entity.TransferResult, 0, len(req.Recipients)),
		StartedAt: time.Now().UTC(),
	}
	log = log.With("batch_id", report.ID.String())
	log.Info("Batch started", "recipients", len(req.Recipients), "from", session.Account)

	var abortErr error
	processed := len(req.Recipients)
	for i, rcpt := range req.Recipients {
		if abortErr = e.checkContinue(ctx, session.Epoch); abortErr != nil {
			processed = i
			e.abortRemaining(report, req.Recipients[i:], i, abortErr, progress)
			break
		}
		result := e.transfer(ctx, session, mode, token, decimals, i, rcpt, progress)
		report.Results = append(report.Results, result)
		e.metrics.TransferSettled(string(mode), string(result.Status))
		progress(result)
		if result.Status == entity.TransferFailed {
			log.Warn("Transfer failed", "index", i, "to", rcpt.Address, "error", result.Error)
		} else {
			log.Info("Transfer confirmed", "index", i, "to", rcpt.Address, "tx", result.TransactionHash)
		}
	}

	report.Tally()
	report.FinishedAt = time.Now().UTC()
	e.metrics.BatchFinished(string(mode), report.FinishedAt.Sub(report.StartedAt))

	if !errors.Is(abortErr, entity.ErrStaleContext) {
		e.refreshFunding(ctx, session, report)
	}

	log.Info("Batch finished", "succeeded", report.Succeeded, "failed", report.Failed, "aborted", abortErr != nil)
	if abortErr != nil {
		return report, fmt.Errorf("batch aborted after %d of %d recipients: %w", processed, len(req.Recipients), abortErr)
	}
	return report, nil
}

func (e *BatchExecutor) checkContinue(ctx context.Context, epoch uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.sessions.Validate(epoch)
}

// transfer submits one recipient and waits for its confirmation.
func (e *BatchExecutor) transfer(
	ctx context.Context,
	session port.Session,
	mode entity.TransferMode,
	token *entity.TokenInfo,
	decimals uint8,
	index int,
	rcpt entity.Recipient,
	progress ProgressFunc,
) entity.TransferResult {
	result := entity.TransferResult{Index: index, Address: rcpt.Address, Amount: rcpt.Amount, Status: entity.TransferPending}
	fail := func(err error) entity.TransferResult {
		result.Status = entity.TransferFailed
		result.Error = err.Error()
		return result
	}

	value, err := utils.ParseUnits(rcpt.Amount, decimals)
	if err != nil {
		return fail(err)
	}
	tx := entity.TxRequest{To: rcpt.Address, Value: value}
	if mode == entity.TokenTransfer {
		data, err := e.encode(rcpt.Address, value)
		if err != nil {
			return fail(fmt.Errorf("encode transfer: %w", err))
		}
		tx = entity.TxRequest{To: token.Address, Data: data}
	}

	submitCtx, cancel := context.WithTimeout(ctx, e.cfg.SubmitTimeout)
	hash, err := session.Signer.SendTransaction(submitCtx, session.Account, tx)
	cancel()
	if err != nil {
		return fail(fmt.Errorf("submit: %w", err))
	}
	result.TransactionHash = hash
	result.ExplorerURL = session.Network.TxURL(hash)
	progress(result)

	confirmCtx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmTimeout)
	err = session.Reader.WaitMined(confirmCtx, hash)
	cancel()
	if err != nil {
		return fail(fmt.Errorf("confirm: %w", err))
	}
	result.Status = entity.TransferSuccess
	return result
}

func (e *BatchExecutor) abortRemaining(report *entity.BatchReport, rest []entity.Recipient, offset int, cause error, progress ProgressFunc) {
	reason := abortReason(cause)
	report.AbortReason = reason
	for k, rcpt := range rest {
		result := entity.TransferResult{
			Index:   offset + k,
			Address: rcpt.Address,
			Amount:  rcpt.Amount,
			Status:  entity.TransferFailed,
			Error:   "not sent: " + reason,
		}
		report.Results = append(report.Results, result)
		e.metrics.TransferSettled(string(report.Mode), "aborted")
		progress(result)
	}
}

func abortReason(err error) string {
	switch {
	case errors.Is(err, entity.ErrStaleContext):
		return "wallet account or network changed during the batch"
	case errors.Is(err, context.Canceled):
		return "batch cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "batch deadline exceeded"
	default:
		return err.Error()
	}
}

// refreshFunding re-reads the sender balance of the asset the batch sent. It runs even
// for a cancelled batch, so it gets its own deadline detached from ctx.
func (e *BatchExecutor) refreshFunding(ctx context.Context, session port.Session, report *entity.BatchReport) {
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.SubmitTimeout)
	defer cancel()

	entry, err := e.balances.ReadAccountBalance(refreshCtx, session, report.Token)
	if err != nil {
		report.RefreshError = err.Error()
		e.logger.Warn("Failed to refresh funding balance", "account", session.Account, "error", err)
		return
	}
	report.FundingBalance = &entry
	e.sessions.RecordBalance(session.Epoch, entry)
}
