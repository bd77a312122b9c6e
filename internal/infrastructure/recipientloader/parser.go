package recipientloader

import (
	"bufio"
	"fmt"
	"math/big"
	"os"
	"strings"
	"unicode"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"
	"airdrop_multisend/internal/pkg/utils"
)

// ParseResult is the outcome of parsing a multisend list.
// Skipped counts non-blank lines that were dropped as malformed.
type ParseResult struct {
	Recipients []entity.Recipient `json:"recipients"`
	Skipped    int                `json:"skipped"`
}

// Loader turns free-form text into validated recipients.
type Loader struct {
	logger port.Logger
}

// NewLoader creates a Loader. A nil logger disables skip logging.
func NewLoader(logger port.Logger) *Loader {
	return &Loader{logger: logger}
}

// Parse splits text into lines and keeps the ones of the form "address,amount" where the
// address is valid and the amount is a positive finite decimal. Output order is input order.
func (l *Loader) Parse(text string) ParseResult {
	return l.parseLines(strings.Split(text, "\n"), false)
}

// LoadFile reads recipients from path. Lines starting with "#" are comments.
func (l *Loader) LoadFile(path string) (ParseResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("failed to open recipients file %s: %w", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return ParseResult{}, fmt.Errorf("error scanning recipients file %s: %w", path, err)
	}

	res := l.parseLines(lines, true)
	if l.logger != nil {
		l.logger.Info("Recipients loaded from file", "path", path, "count", len(res.Recipients), "skipped", res.Skipped)
	}
	return res, nil
}

func (l *Loader) parseLines(lines []string, allowComments bool) ParseResult {
	res := ParseResult{Recipients: []entity.Recipient{}}
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || (allowComments && strings.HasPrefix(line, "#")) {
			continue
		}
		recipient, ok := parseLine(line)
		if !ok {
			res.Skipped++
			if l.logger != nil {
				l.logger.Debug("Skipping malformed recipient line", "line_number", i+1, "line", line)
			}
			continue
		}
		res.Recipients = append(res.Recipients, recipient)
	}
	return res
}

func parseLine(line string) (entity.Recipient, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return entity.Recipient{}, false
	}
	address := strings.TrimSpace(parts[0])
	amount := strings.TrimSpace(parts[1])

	normalized, ok := utils.NormalizeAddress(address)
	if !ok || !utils.IsPositiveAmount(amount) {
		return entity.Recipient{}, false
	}
	return entity.Recipient{Address: normalized, Amount: amount}, true
}

// Serialize renders recipients back into "address,amount" lines.
func Serialize(recipients []entity.Recipient) string {
	var b strings.Builder
	for i, r := range recipients {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Address)
		b.WriteByte(',')
		b.WriteString(r.Amount)
	}
	return b.String()
}

// TotalAmount is the exact sum of all recipient amounts.
func TotalAmount(recipients []entity.Recipient) string {
	amounts := make([]string, len(recipients))
	for i, r := range recipients {
		amounts[i] = r.Amount
	}
	return utils.SumDecimals(amounts, 18)
}

// SendTotal converts every amount into base units of an asset with the given decimals
// and returns the exact total. Amounts that cannot be sent with that precision are left
// out of the total and reported by index in rejected.
func SendTotal(recipients []entity.Recipient, decimals uint8) (total string, rejected []int) {
	sum := new(big.Int)
	for i, r := range recipients {
		units, err := utils.ParseUnits(r.Amount, decimals)
		if err != nil {
			rejected = append(rejected, i)
			continue
		}
		sum.Add(sum, units)
	}
	return utils.FormatBigInt(sum, decimals), rejected
}

// ParseAddressList splits text on newlines, commas and whitespace and returns the
// non-empty tokens in order. No validation happens here.
func ParseAddressList(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if fields == nil {
		return []string{}
	}
	return fields
}
