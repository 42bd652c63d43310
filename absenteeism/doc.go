// Package absenteeism scores employee absence records with a frozen binary
// classifier that estimates the probability of excessive absenteeism.
//
// A Predictor pairs a logistic regression model with the ColumnScaler it was
// trained with. Raw CSV batches go through LoadAndClean, which returns a Batch
// holding the unscaled feature frame and the scaled matrix. Every query takes
// that Batch explicitly.
//
// # Features
//
// The classifier sees eleven features, in this order:
//
//	Reason_1, Reason_2, Reason_3, Reason_4, Month Value,
//	Transportation Expense, Age, Body Mass Index, Education, Children, Pet
//
// Reason codes 1-14, 15-17, 18-21 and 22-28 map to Reason_1..Reason_4; code 0
// sets none of them. Dates are day/month/year. Education 1 maps to 0 and 2-4
// map to 1.
//
// # Quick Start
//
//	p, err := absenteeism.NewPredictorFromFiles("model", "absenteeism_scaler")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	batch, err := p.LoadAndCleanFile("Absenteeism_new_data.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	table, err := p.PredictedOutputs(batch)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(table)
//
// # Scaling
//
// By default the training-time scaler is applied to every batch, so a row
// scores the same regardless of the rows loaded with it. WithBatchRefit(true)
// fits a fresh scaler over each batch instead.
//
// # Error Handling
//
// Errors come from pkg/errors: a missing input column is a ColumnError, an
// unparsable cell a ParseError, a reason code outside 0..28 a ValidationError
// and a file without data rows a ModelError wrapping ErrEmptyData. Missing
// values are filled with 0 and reported as DataConversionWarning through
// errors.Warn.
package absenteeism
