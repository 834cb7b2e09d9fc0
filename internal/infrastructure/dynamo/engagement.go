package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-api-community/internal/domain"
)

// EngagementRepo stores per-user views and saves, keyed (user_id, post_id).
type EngagementRepo struct {
	client      *dynamodb.Client
	viewedTable string
	savedTable  string
}

func NewEngagementRepo(client *dynamodb.Client, viewedTable, savedTable string) *EngagementRepo {
	return &EngagementRepo{client: client, viewedTable: viewedTable, savedTable: savedTable}
}

// MarkViewed upserts the view record, refreshing viewed_at.
func (r *EngagementRepo) MarkViewed(ctx context.Context, v *domain.ViewedPost) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.viewedTable),
		Item:      item,
	})
	return err
}

func (r *EngagementRepo) ViewedPostIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.viewedTable),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": strVal(userID)},
		ProjectionExpression:      aws.String("post_id"),
	})
	ids := make(map[string]struct{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if v, ok := item[attrPostID].(*types.AttributeValueMemberS); ok {
				ids[v.Value] = struct{}{}
			}
		}
	}
	return ids, nil
}

// ToggleSave deletes an existing save or creates a new one. A save created
// concurrently between the two steps counts as saved.
func (r *EngagementRepo) ToggleSave(ctx context.Context, userID, postID string, at time.Time) (domain.SaveState, error) {
	del, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.savedTable),
		Key:          compositeKey(attrUserID, userID, attrPostID, postID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return "", err
	}
	if len(del.Attributes) > 0 {
		return domain.Unsaved, nil
	}

	item, err := attributevalue.MarshalMap(domain.SavedPost{UserID: userID, PostID: postID, SavedAt: at})
	if err != nil {
		return "", fmt.Errorf("marshal save: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.savedTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(post_id)"),
	})
	if err != nil && !isConditionFailed(err) {
		return "", err
	}
	return domain.Saved, nil
}

func (r *EngagementRepo) ListSaved(ctx context.Context, userID string) ([]domain.SavedPost, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.savedTable),
		IndexName:                 aws.String(indexSavedByUserTime),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": strVal(userID)},
		ScanIndexForward:          aws.Bool(false),
	})
	saved := []domain.SavedPost{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.SavedPost
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		saved = append(saved, batch...)
	}
	// saved_at strings are not fixed width, so the index order is only
	// right to the second.
	sort.SliceStable(saved, func(i, j int) bool { return saved[i].SavedAt.After(saved[j].SavedAt) })
	return saved, nil
}
