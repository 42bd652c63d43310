// Package metrics provides binary classification scores for evaluating
// predicted probabilities and labels against observed outcomes.
package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// logLossEpsilon はlog(0)を避けるためのクリッピング幅
const logLossEpsilon = 1e-15

// checkPair は2つのベクトルが空でなく同じ長さであることを検証する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// checkBinary はラベルが0か1のみであることを検証する
func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValidationError("y_true", op+": labels must be 0 or 1", v)
		}
	}
	return nil
}

// AUC はROC曲線下面積をMann-Whitney統計量として計算する。
// 同順位のスコアは平均順位で扱う。正例または負例しかない場合は0.5を返す。
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b])
	})

	var rankSumPos float64
	var nPos int
	for i := 0; i < n; {
		j := i
		for j+1 < n && yPred.AtVec(idx[j+1]) == yPred.AtVec(idx[i]) {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				rankSumPos += avgRank
				nPos++
			}
		}
		i = j + 1
	}

	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}

	u := rankSumPos - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}

// AUCMatrix は行列の先頭列同士でAUCを計算する
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	trueVec, err := firstColumn("AUCMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	predVec, err := firstColumn("AUCMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return AUC(trueVec, predVec)
}

func firstColumn(op string, m mat.Matrix) (*mat.VecDense, error) {
	if d, ok := m.(*mat.Dense); ok && d.IsEmpty() {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m)), nil
}

// BinaryLogLoss は二値クロスエントロピーを計算する。
// 確率は[eps, 1-eps]にクリップされる。
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yPred.AtVec(i), logLossEpsilon), 1-logLossEpsilon)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率 (1 - Accuracy) を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// ConfusionMatrix は二値分類の混同行列
type ConfusionMatrix struct {
	TrueNegative  int `json:"tn"`
	FalsePositive int `json:"fp"`
	FalseNegative int `json:"fn"`
	TruePositive  int `json:"tp"`
}

// BinaryConfusionMatrix は0/1ラベルから混同行列を集計する
func BinaryConfusionMatrix(yTrue, yPred *mat.VecDense) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	n, err := checkPair("BinaryConfusionMatrix", yTrue, yPred)
	if err != nil {
		return cm, err
	}
	if err := checkBinary("BinaryConfusionMatrix", yTrue); err != nil {
		return cm, err
	}
	if err := checkBinary("BinaryConfusionMatrix", yPred); err != nil {
		return cm, err
	}

	for i := 0; i < n; i++ {
		switch {
		case yTrue.AtVec(i) == 1 && yPred.AtVec(i) == 1:
			cm.TruePositive++
		case yTrue.AtVec(i) == 1:
			cm.FalseNegative++
		case yPred.AtVec(i) == 1:
			cm.FalsePositive++
		default:
			cm.TrueNegative++
		}
	}
	return cm, nil
}

// Precision は陽性予測のうち正しいものの割合。陽性予測がなければ0。
func (cm ConfusionMatrix) Precision() float64 {
	if cm.TruePositive+cm.FalsePositive == 0 {
		return 0
	}
	return float64(cm.TruePositive) / float64(cm.TruePositive+cm.FalsePositive)
}

// Recall は実際の陽性のうち検出できた割合。陽性がなければ0。
func (cm ConfusionMatrix) Recall() float64 {
	if cm.TruePositive+cm.FalseNegative == 0 {
		return 0
	}
	return float64(cm.TruePositive) / float64(cm.TruePositive+cm.FalseNegative)
}
