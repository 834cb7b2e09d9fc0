package dynamo

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"title": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "title"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"visibility":  "public",
		"description": "d",
		"status":      "draft",
	}
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)
	assert.Equal(t, "description", ue1.Names["#f0"])
	assert.Equal(t, "status", ue1.Names["#f1"])
	assert.Equal(t, "visibility", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"tags": []string{"go"}})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	list, isList := av.(*types.AttributeValueMemberL)
	require.True(t, isList)
	require.Len(t, list.Value, 1)
	assert.Equal(t, "go", list.Value[0].(*types.AttributeValueMemberS).Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestCancellationCodes(t *testing.T) {
	err := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String(codeConditionFailed)},
		},
	}
	codes := cancellationCodes(err)
	assert.Equal(t, []string{"None", codeConditionFailed}, codes)
	assert.False(t, failedAt(codes, 0))
	assert.True(t, failedAt(codes, 1))
	assert.False(t, failedAt(codes, 5))

	assert.Nil(t, cancellationCodes(errors.New("boom")))
}

func TestIsConditionFailed(t *testing.T) {
	assert.True(t, isConditionFailed(&types.ConditionalCheckFailedException{}))
	assert.False(t, isConditionFailed(errors.New("other")))
}

func TestChunk(t *testing.T) {
	in := []int{1, 2, 3, 4, 5}
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chunk(in, 2))
	assert.Nil(t, chunk([]int{}, 25))
}
