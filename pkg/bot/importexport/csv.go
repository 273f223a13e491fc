package importexport

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/smith3v/tg-english-coach/pkg/db"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const maxDelimiterSampleRecords = 20

var exportHeader = []string{"word", "definition", "translation", "example"}

// FlashcardSaver stores one card and reports whether it was new.
type FlashcardSaver interface {
	SaveFlashcard(ctx context.Context, card *db.Flashcard) (db.SaveStatus, error)
}

// ParseFlashcardCSV reads rows of word, definition, translation, example.
// Only the word is required; rows without one are counted as skipped.
func ParseFlashcardCSV(userID int64, data []byte) ([]db.Flashcard, int, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	delimiter := detectCSVDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	var cards []db.Flashcard
	skipped := 0
	checkedHeader := false

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, err
		}
		if isEmptyCSVRecord(record) {
			skipped++
			continue
		}
		if !checkedHeader {
			checkedHeader = true
			if isHeaderRecord(record) {
				continue
			}
		}
		word := field(record, 0)
		if word == "" {
			skipped++
			continue
		}
		cards = append(cards, db.Flashcard{
			UserID:      userID,
			Word:        word,
			Definition:  field(record, 1),
			Translation: field(record, 2),
			Example:     field(record, 3),
		})
	}

	return cards, skipped, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func detectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', '\t', ';'}
	bestDelimiter := candidates[0]
	bestScore := -1

	for _, delimiter := range candidates {
		score, err := scoreDelimiter(data, delimiter, maxDelimiterSampleRecords)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestDelimiter = delimiter
		}
	}

	if bestScore <= 0 {
		return ','
	}
	return bestDelimiter
}

// scoreDelimiter counts the most common multi-column record width.
func scoreDelimiter(data []byte, delimiter rune, maxRecords int) (int, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	counts := make(map[int]int)
	recordsSeen := 0

	for recordsSeen < maxRecords {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if isEmptyCSVRecord(record) {
			continue
		}
		recordsSeen++
		if len(record) < 2 {
			continue
		}
		counts[len(record)]++
	}

	best := 0
	for _, score := range counts {
		if score > best {
			best = score
		}
	}
	return best, nil
}

func isEmptyCSVRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isHeaderRecord(record []string) bool {
	return strings.EqualFold(field(record, 0), exportHeader[0]) &&
		(len(record) < 2 || strings.EqualFold(field(record, 1), exportHeader[1]))
}

// ImportFlashcards saves every card, leaving existing words untouched.
func ImportFlashcards(ctx context.Context, saver FlashcardSaver, cards []db.Flashcard) (inserted, duplicates int, err error) {
	for i := range cards {
		status, err := saver.SaveFlashcard(ctx, &cards[i])
		if err != nil {
			return inserted, duplicates, fmt.Errorf("import %q: %w", cards[i].Word, err)
		}
		if status == db.SaveSkipped {
			duplicates++
			continue
		}
		inserted++
	}
	return inserted, duplicates, nil
}

// BuildExportCSV writes a header and one row per card, with a BOM and CRLF
// line endings so spreadsheet apps open it as UTF-8.
func BuildExportCSV(cards []db.Flashcard) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.Write(utf8BOM); err != nil {
		return nil, err
	}

	writer := csv.NewWriter(&buf)
	writer.UseCRLF = true

	if err := writer.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, card := range cards {
		if err := writer.Write([]string{card.Word, card.Definition, card.Translation, card.Example}); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ExportFilename(now time.Time) string {
	return fmt.Sprintf("flashcards-%s.csv", now.Format("20060102"))
}

func SortForExport(cards []db.Flashcard) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].WordKey == cards[j].WordKey {
			return cards[i].ID < cards[j].ID
		}
		return cards[i].WordKey < cards[j].WordKey
	})
}
