package gameservice

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	gamedomain "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/domain"
	"github.com/xuri/excelize/v2"
)

const scoreCardSheet = "Scorecard"

var sheetHeader = []any{"Frame", "Roll 1", "Roll 2", "Roll 3", "Type", "Score"}

// RenderScoreCardXLSX writes the scorecard to a single-sheet workbook. The
// first four columns are a roll sheet that ImportFrames can read back.
func RenderScoreCardXLSX(view *ScoreCardView) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", scoreCardSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(scoreCardSheet, "A1", &sheetHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(scoreCardSheet, "A1", "F1", bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range view.Frames {
		values := []any{row.Number, "", "", "", string(row.Type), row.FrameScore}
		for j, r := range row.Rolls {
			values[1+j] = r
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(scoreCardSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write frame %d: %w", row.Number, err)
		}
	}

	totalCell, err := excelize.CoordinatesToCellName(5, len(view.Frames)+3)
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(scoreCardSheet, totalCell, &[]any{"Total", view.Total}); err != nil {
		return nil, fmt.Errorf("failed to write total: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportFrames reads a roll sheet from the first worksheet of an xlsx file.
// The sheet needs a header row starting with "Frame", followed by one row per
// frame: Frame | Roll 1 | Roll 2 | Roll 3. Cells hold pin counts or X, /, -.
// Reading stops at the first row without a frame number. Rolls are not
// validated here; the frame constructors do that.
func ImportFrames(data []byte) ([]ImportedFrame, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open XLSX file: %v", ErrInvalidSheet, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: XLSX file has no sheets", ErrInvalidSheet)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %v", ErrInvalidSheet, sheets[0], err)
	}

	header := -1
	for i, row := range rows {
		if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "frame") {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, fmt.Errorf("%w: no header row starting with \"Frame\"", ErrInvalidSheet)
	}

	var frames []ImportedFrame
	for i := header + 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			break
		}

		number, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: frame number %q", ErrInvalidSheet, i+1, row[0])
		}
		if want := len(frames) + 1; number != want {
			return nil, fmt.Errorf("%w: row %d: expected frame %d, got %d", ErrInvalidSheet, i+1, want, number)
		}
		if number > gamedomain.FramesPerGame {
			return nil, fmt.Errorf("%w: more than %d frames", ErrInvalidSheet, gamedomain.FramesPerGame)
		}

		rolls, err := parseRollCells(row[1:], number == gamedomain.FramesPerGame)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidSheet, i+1, err)
		}
		frames = append(frames, ImportedFrame{Number: number, Rolls: rolls})
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames found", ErrInvalidSheet)
	}
	return frames, nil
}

// parseRollCells decodes up to three roll cells. Empty cells become nil so
// the frame constructors can report them as missing; trailing empties past
// the second roll are dropped.
func parseRollCells(cells []string, final bool) ([]*int, error) {
	rolls := make([]*int, 3)
	standing := -1
	for i := 0; i < 3 && i < len(cells); i++ {
		sym := strings.TrimSpace(cells[i])
		if sym == "" {
			standing = -1
			continue
		}
		v, err := rollValue(sym, standing)
		if err != nil {
			return nil, fmt.Errorf("roll %d: %v", i+1, err)
		}
		rolls[i] = &v
		if standing < 0 && v < gamedomain.MaxPins {
			standing = gamedomain.MaxPins - v
		} else {
			standing = -1
		}
	}

	// A strike in frames 1-9 is often written without the second ball.
	if !final && rolls[0] != nil && *rolls[0] == gamedomain.MaxPins && rolls[1] == nil {
		zero := 0
		rolls[1] = &zero
	}

	for len(rolls) > 2 && rolls[len(rolls)-1] == nil {
		rolls = rolls[:len(rolls)-1]
	}
	return rolls, nil
}
