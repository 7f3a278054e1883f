package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/MaxRadzey/celservice/internal/celexpr"
	"github.com/MaxRadzey/celservice/internal/config"
	"github.com/MaxRadzey/celservice/internal/logger"
	dbstorage "github.com/MaxRadzey/celservice/internal/storage"
	"github.com/MaxRadzey/celservice/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
	"google.golang.org/protobuf/proto"
)

// deterministic нужен, чтобы одинаковые деревья давали одинаковые ключи кэша.
var deterministic = proto.MarshalOptions{Deterministic: true}

type Service struct {
	parser    *celexpr.Parser
	cache     dbstorage.ExprCache
	appConfig config.Config
	parseKind string
}

func NewService(parser *celexpr.Parser, cache dbstorage.ExprCache, appConfig config.Config) *Service {
	return &Service{
		parser:    parser,
		cache:     cache,
		appConfig: appConfig,
		parseKind: parseKind(parser.Options()),
	}
}

// parseKind включает ограничения парсера в ключ кэша: при других лимитах
// закэшированный результат разбора недействителен.
func parseKind(opts celexpr.Options) string {
	return fmt.Sprintf("%s/size=%d/depth=%d", dbstorage.KindParse, opts.ExpressionSizeLimit, opts.RecursionLimit)
}

// BatchParse разбирает выражения в синтаксические деревья.
// Результат i соответствует входу i. Ошибка любого элемента отменяет весь пакет,
// при нескольких ошибках возвращается ошибка элемента с наименьшим индексом.
func (s *Service) BatchParse(ctx context.Context, expressions []string) ([]*exprpb.Expr, error) {
	if err := s.checkBatch(len(expressions)); err != nil {
		return nil, err
	}

	keys := make([]string, len(expressions))
	for i, text := range expressions {
		keys[i] = utils.CacheKey(s.parseKind, []byte(text))
	}
	cached := s.lookup(ctx, keys)

	results := make([]*exprpb.Expr, len(expressions))
	errs := make([]error, len(expressions))
	var (
		mu    sync.Mutex
		fresh []dbstorage.Entry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.appConfig.Workers)

	for i, text := range expressions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			if raw, ok := cached[keys[i]]; ok {
				expr := &exprpb.Expr{}
				if err := proto.Unmarshal(raw, expr); err == nil {
					results[i] = expr
					return nil
				}
				logger.Log.Warn("Dropping undecodable cache entry", zap.String("key", keys[i]))
			}

			expr, err := s.parser.Parse(text)
			if err != nil {
				errs[i] = &ErrInvalidExpression{Index: i, Err: err}
				return nil
			}
			results[i] = expr

			raw, err := deterministic.Marshal(expr)
			if err != nil {
				errs[i] = fmt.Errorf("failed to encode expression tree: %w", err)
				return nil
			}
			mu.Lock()
			fresh = append(fresh, dbstorage.Entry{Key: keys[i], Kind: dbstorage.KindParse, Value: raw})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := firstError(errs); err != nil {
		return nil, err
	}

	s.store(ctx, fresh)
	return results, nil
}

// BatchDeparse собирает деревья обратно в текст.
// Результат i соответствует входу i. Ошибка любого элемента отменяет весь пакет.
func (s *Service) BatchDeparse(ctx context.Context, expressions []*exprpb.Expr) ([]string, error) {
	if err := s.checkBatch(len(expressions)); err != nil {
		return nil, err
	}

	keys := make([]string, len(expressions))
	for i, expr := range expressions {
		if expr == nil || expr.GetExprKind() == nil {
			return nil, &ErrInvalidExpression{Index: i, Err: celexpr.ErrEmptyExpression}
		}
		raw, err := deterministic.Marshal(expr)
		if err != nil {
			return nil, &ErrInvalidExpression{Index: i, Err: err}
		}
		keys[i] = utils.CacheKey(dbstorage.KindDeparse, raw)
	}
	cached := s.lookup(ctx, keys)

	results := make([]string, len(expressions))
	errs := make([]error, len(expressions))
	var (
		mu    sync.Mutex
		fresh []dbstorage.Entry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.appConfig.Workers)

	for i, expr := range expressions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			if raw, ok := cached[keys[i]]; ok {
				results[i] = string(raw)
				return nil
			}

			text, err := s.parser.Deparse(expr)
			if err != nil {
				errs[i] = &ErrInvalidExpression{Index: i, Err: err}
				return nil
			}
			results[i] = text

			mu.Lock()
			fresh = append(fresh, dbstorage.Entry{Key: keys[i], Kind: dbstorage.KindDeparse, Value: []byte(text)})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := firstError(errs); err != nil {
		return nil, err
	}

	s.store(ctx, fresh)
	return results, nil
}

// Ping проверяет доступность хранилища кэша.
func (s *Service) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

// firstError возвращает ошибку элемента с наименьшим индексом,
// чтобы ответ не зависел от порядка завершения горутин.
func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkBatch(size int) error {
	if size > s.appConfig.MaxBatchSize {
		return &ErrBatchTooLarge{Size: size, Limit: s.appConfig.MaxBatchSize}
	}
	return nil
}

// lookup читает кэш. Ошибка кэша не ломает запрос: работаем так, будто кэш пуст.
func (s *Service) lookup(ctx context.Context, keys []string) map[string][]byte {
	if len(keys) == 0 {
		return nil
	}
	cached, err := s.cache.GetBatch(ctx, keys)
	if err != nil {
		logger.Log.Warn("Cache lookup failed", zap.Error(err), zap.Int("keys", len(keys)))
		return nil
	}
	return cached
}

func (s *Service) store(ctx context.Context, entries []dbstorage.Entry) {
	if len(entries) == 0 {
		return
	}
	if err := s.cache.CreateBatch(ctx, entries); err != nil {
		logger.Log.Warn("Cache store failed", zap.Error(err), zap.Int("entries", len(entries)))
	}
}
