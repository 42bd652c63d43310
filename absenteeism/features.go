package absenteeism

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Raw input columns.
const (
	ColID               = "ID"
	ColReason           = "Reason for Absence"
	ColDate             = "Date"
	ColTransportation   = "Transportation Expense"
	ColDistance         = "Distance to Work"
	ColAge              = "Age"
	ColWorkLoad         = "Daily Work Load Average"
	ColBMI              = "Body Mass Index"
	ColEducation        = "Education"
	ColChildren         = "Children"
	ColPet              = "Pet"
	ColAbsenteeismHours = "Absenteeism Time in Hours"
)

// Derived and output columns.
const (
	ColReason1     = "Reason_1"
	ColReason2     = "Reason_2"
	ColReason3     = "Reason_3"
	ColReason4     = "Reason_4"
	ColMonth       = "Month Value"
	ColDayOfWeek   = "Day of the Week"
	ColProbability = "Probability"
	ColPrediction  = "Prediction"
)

const (
	dateLayout             = "2/1/2006"
	maxReasonCode          = 28
	buildFeaturesOperation = "BuildFeatures"
)

// RequiredColumns lists the input columns that must be present. The
// absenteeism hours column is optional since unlabelled batches omit it.
var RequiredColumns = []string{
	ColID, ColReason, ColDate, ColTransportation, ColDistance, ColAge,
	ColWorkLoad, ColBMI, ColEducation, ColChildren, ColPet,
}

// FeatureColumns is the column order the classifier was trained on.
var FeatureColumns = []string{
	ColReason1, ColReason2, ColReason3, ColReason4, ColMonth,
	ColTransportation, ColAge, ColBMI, ColEducation, ColChildren, ColPet,
}

// derivedColumns is the intermediate layout before unused features are dropped.
var derivedColumns = []string{
	ColReason1, ColReason2, ColReason3, ColReason4, ColMonth, ColDayOfWeek,
	ColTransportation, ColDistance, ColAge, ColWorkLoad, ColBMI,
	ColEducation, ColChildren, ColPet,
}

// droppedFeatures are derived but not used by the classifier.
var droppedFeatures = []string{ColDayOfWeek, ColDistance, ColWorkLoad}

// reasonGroups maps each reason code range to its group column.
var reasonGroups = []struct {
	column   string
	from, to int
}{
	{ColReason1, 1, 14},
	{ColReason2, 15, 17},
	{ColReason3, 18, 21},
	{ColReason4, 22, maxReasonCode},
}

// educationLevels collapses education to "high school" (0) or "beyond" (1).
var educationLevels = map[int]int{1: 0, 2: 1, 3: 1, 4: 1}

// naValues are the cell contents treated as missing.
var naValues = []string{"", "NA", "NaN", "nan", "<nil>"}

// ReadRaw parses a comma-delimited absenteeism CSV into a frame of string
// columns, checking that every required column is present.
func ReadRaw(r io.Reader) (dataframe.DataFrame, error) {
	records, err := readRecords(r)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	raw := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	if raw.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(raw.Err, "load records")
	}

	for _, name := range RequiredColumns {
		if raw.Col(name).Err != nil {
			return dataframe.DataFrame{}, errors.NewColumnError("ReadRaw", name)
		}
	}
	return raw, nil
}

func readRecords(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(records) < 2 {
		return nil, errors.NewModelError("ReadRaw", "no data rows", errors.ErrEmptyData)
	}
	return records, nil
}

// BuildFeatures turns a raw frame into the classifier's feature frame, in
// FeatureColumns order and before any scaling.
//
// Reason codes 1-28 are one-hot encoded against code 0 and collapsed into four
// groups. Dates (day/month/year) yield the month. Education is binarized.
// Missing values are filled with 0 and reported through errors.Warn, once per
// affected column.
func BuildFeatures(raw dataframe.DataFrame) (dataframe.DataFrame, error) {
	derived, err := deriveFrame(raw)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	features := derived.Drop(droppedFeatures).Select(FeatureColumns)
	if features.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(features.Err, buildFeaturesOperation)
	}
	return features, nil
}

// missingTracker counts the cells filled with 0 per column.
type missingTracker map[string]int

func (m missingTracker) fill(column string) float64 {
	m[column]++
	return 0
}

func (m missingTracker) warn() {
	for _, name := range derivedColumns {
		if n := m[name]; n > 0 {
			errors.Warn(errors.NewDataConversionWarning("NaN", "0",
				fmt.Sprintf("column %q: %d missing value(s) filled with 0", name, n)))
		}
	}
}

// deriveFrame applies the row-wise derivations and returns every derived
// column, including the ones BuildFeatures drops afterwards.
func deriveFrame(raw dataframe.DataFrame) (dataframe.DataFrame, error) {
	if raw.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(raw.Err, buildFeaturesOperation)
	}
	rows := raw.Nrow()
	if rows == 0 {
		return dataframe.DataFrame{}, errors.NewModelError(buildFeaturesOperation, "no data rows", errors.ErrEmptyData)
	}
	for _, name := range RequiredColumns {
		if raw.Col(name).Err != nil {
			return dataframe.DataFrame{}, errors.NewColumnError(buildFeaturesOperation, name)
		}
	}

	missing := missingTracker{}
	out := make(map[string][]float64, len(derivedColumns))
	for _, name := range derivedColumns {
		out[name] = make([]float64, rows)
	}

	reasons := raw.Col(ColReason)
	for i := 0; i < rows; i++ {
		code, err := reasonCode(reasons.Elem(i), i)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		for _, g := range reasonGroups {
			if code >= g.from && code <= g.to {
				out[g.column][i] = 1
			}
		}
	}

	dates := raw.Col(ColDate)
	for i := 0; i < rows; i++ {
		e := dates.Elem(i)
		if e.IsNA() || isNA(strings.TrimSpace(e.String())) {
			out[ColMonth][i] = missing.fill(ColMonth)
			out[ColDayOfWeek][i] = missing.fill(ColDayOfWeek)
			continue
		}
		t, err := time.Parse(dateLayout, strings.TrimSpace(e.String()))
		if err != nil {
			return dataframe.DataFrame{}, errors.NewParseError(buildFeaturesOperation, ColDate, i, e.String(), err)
		}
		out[ColMonth][i] = float64(t.Month())
		out[ColDayOfWeek][i] = float64(mondayFirst(t.Weekday()))
	}

	for _, name := range []string{ColTransportation, ColDistance, ColAge, ColWorkLoad, ColBMI, ColChildren, ColPet} {
		col := raw.Col(name)
		for i := 0; i < rows; i++ {
			v, ok, err := numericCell(col.Elem(i), name, i)
			if err != nil {
				return dataframe.DataFrame{}, err
			}
			if !ok {
				v = missing.fill(name)
			}
			out[name][i] = v
		}
	}

	education := raw.Col(ColEducation)
	for i := 0; i < rows; i++ {
		v, ok, err := numericCell(education.Elem(i), ColEducation, i)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		level, mapped := educationLevels[int(v)]
		if !ok || !mapped || v != math.Trunc(v) {
			out[ColEducation][i] = missing.fill(ColEducation)
			continue
		}
		out[ColEducation][i] = float64(level)
	}

	missing.warn()

	cols := make([]series.Series, len(derivedColumns))
	for k, name := range derivedColumns {
		cols[k] = newFeatureSeries(name, out[name])
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(df.Err, buildFeaturesOperation)
	}
	return df, nil
}

// newFeatureSeries keeps indicator and count columns integral.
func newFeatureSeries(name string, values []float64) series.Series {
	switch name {
	case ColReason1, ColReason2, ColReason3, ColReason4, ColMonth, ColDayOfWeek, ColEducation:
		ints := make([]int, len(values))
		for i, v := range values {
			ints[i] = int(v)
		}
		return series.New(ints, series.Int, name)
	default:
		return series.New(values, series.Float, name)
	}
}

// reasonCode parses a reason code. Missing cells count as code 0.
func reasonCode(e series.Element, row int) (int, error) {
	v, ok, err := numericCell(e, ColReason, row)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if v != math.Trunc(v) || v < 0 || v > maxReasonCode {
		return 0, errors.NewValidationError(ColReason, fmt.Sprintf("row %d: code must be an integer in 0..%d", row, maxReasonCode), e.String())
	}
	return int(v), nil
}

// numericCell parses a cell as float64. ok is false for missing cells.
func numericCell(e series.Element, column string, row int) (float64, bool, error) {
	if e.IsNA() {
		return 0, false, nil
	}
	s := strings.TrimSpace(e.String())
	if isNA(s) {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, errors.NewParseError(buildFeaturesOperation, column, row, s, err)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}

func isNA(s string) bool {
	for _, na := range naValues {
		if s == na {
			return true
		}
	}
	return false
}

// mondayFirst converts a weekday to 0=Monday..6=Sunday.
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}
