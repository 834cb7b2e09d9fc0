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
	"golang.org/x/sync/errgroup"

	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/logging"
)

const batchWriteMax = 25

// CommentRepo stores comments and keeps posts.comment_count in step with them.
type CommentRepo struct {
	client     *dynamodb.Client
	tableName  string
	postsTable string
}

func NewCommentRepo(client *dynamodb.Client, tableName, postsTable string) *CommentRepo {
	return &CommentRepo{client: client, tableName: tableName, postsTable: postsTable}
}

// Create inserts the comment and increments the post's counter atomically.
func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:                 aws.String(r.postsTable),
				Key:                       strKey(attrPostID, c.PostID),
				UpdateExpression:          aws.String("ADD comment_count :one"),
				ConditionExpression:       aws.String("attribute_exists(post_id)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{":one": numVal(1)},
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(comment_id)"),
			}},
		},
	})
	if err != nil {
		codes := cancellationCodes(err)
		switch {
		case failedAt(codes, 0):
			return fmt.Errorf("post %w", domain.ErrNotFound)
		case failedAt(codes, 1):
			return fmt.Errorf("comment already exists: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *CommentRepo) Get(ctx context.Context, commentID string) (*domain.Comment, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrCommentID, commentID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("comment %w", domain.ErrNotFound)
	}
	var c domain.Comment
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepo) UpdateContent(ctx context.Context, commentID, content string, at time.Time) (*domain.Comment, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{attrContent: content, attrUpdatedAt: at})
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrCommentID, commentID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(comment_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("comment %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var c domain.Comment
	if err := attributevalue.UnmarshalMap(out.Attributes, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes the comment and decrements the post's counter atomically.
// If the counter is already zero (or the post is gone) the comment is still
// removed on its own and the drift is logged.
func (r *CommentRepo) Delete(ctx context.Context, c *domain.Comment) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:           aws.String(r.tableName),
				Key:                 strKey(attrCommentID, c.CommentID),
				ConditionExpression: aws.String("attribute_exists(comment_id)"),
			}},
			{Update: &types.Update{
				TableName:           aws.String(r.postsTable),
				Key:                 strKey(attrPostID, c.PostID),
				UpdateExpression:    aws.String("SET comment_count = comment_count - :one"),
				ConditionExpression: aws.String("attribute_exists(post_id) AND comment_count > :zero"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":one":  numVal(1),
					":zero": numVal(0),
				},
			}},
		},
	})
	if err == nil {
		return nil
	}
	codes := cancellationCodes(err)
	if failedAt(codes, 0) {
		return fmt.Errorf("comment %w", domain.ErrNotFound)
	}
	if !failedAt(codes, 1) {
		return err
	}
	logging.Ctx(ctx).Warn().Str("comment_id", c.CommentID).Str("post_id", c.PostID).
		Msg("comment counter already zero, deleting comment alone")
	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrCommentID, c.CommentID),
	})
	return err
}

func (r *CommentRepo) ListByPosts(ctx context.Context, postIDs []string) (map[string][]domain.Comment, error) {
	lists := make([][]domain.Comment, len(postIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, postID := range postIDs {
		g.Go(func() error {
			cs, err := r.listByPost(gctx, postID)
			if err != nil {
				return err
			}
			lists[i] = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string][]domain.Comment, len(postIDs))
	for i, postID := range postIDs {
		out[postID] = lists[i]
	}
	return out, nil
}

func (r *CommentRepo) listByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexCommentsByPost),
		KeyConditionExpression:    aws.String("post_id = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":p": strVal(postID)},
		ScanIndexForward:          aws.Bool(true),
	})
	comments := []domain.Comment{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Comment
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		comments = append(comments, batch...)
	}
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

// DeleteByPost removes every comment of a deleted post in batches.
func (r *CommentRepo) DeleteByPost(ctx context.Context, postID string) error {
	comments, err := r.listByPost(ctx, postID)
	if err != nil {
		return err
	}
	reqs := make([]types.WriteRequest, 0, len(comments))
	for _, c := range comments {
		reqs = append(reqs, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: strKey(attrCommentID, c.CommentID)},
		})
	}
	for _, batch := range chunk(reqs, batchWriteMax) {
		pending := map[string][]types.WriteRequest{r.tableName: batch}
		for len(pending) > 0 {
			out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return err
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}
