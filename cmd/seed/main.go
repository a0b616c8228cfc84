// Command seed tears down and repopulates the database with demo users,
// products and reviews, then fixes up the product rating aggregates.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kwypchlo/demo-product-review-system/internal/config"
	"github.com/kwypchlo/demo-product-review-system/migrations"
	"github.com/kwypchlo/demo-product-review-system/pkg/database"
	"github.com/kwypchlo/demo-product-review-system/pkg/logger"
	"github.com/kwypchlo/demo-product-review-system/pkg/slug"
)

const (
	userCount    = 25
	productCount = 100
	maxReviews   = 12
)

var (
	adjectives = []string{
		"Incredible", "Rustic", "Sleek", "Handmade", "Ergonomic", "Practical",
		"Refined", "Luxurious", "Modern", "Gorgeous", "Unbranded", "Fantastic",
	}
	materials = []string{
		"Steel", "Wooden", "Granite", "Cotton", "Concrete", "Plastic",
		"Rubber", "Bronze", "Frozen", "Soft",
	}
	items = []string{
		"Chair", "Table", "Keyboard", "Shirt", "Bike", "Lamp",
		"Bottle", "Shoes", "Towels", "Bacon", "Cheese", "Gloves",
	}
	firstNames = []string{
		"Ada", "Grace", "Alan", "Edsger", "Barbara", "Donald",
		"Margaret", "Dennis", "Ken", "Linus", "Rob", "Brian",
	}
	lastNames = []string{
		"Lovelace", "Hopper", "Turing", "Dijkstra", "Liskov", "Knuth",
		"Hamilton", "Ritchie", "Thompson", "Torvalds", "Pike", "Kernighan",
	}
	reviewSnippets = []string{
		"Exactly what I was looking for, works perfectly.",
		"Quality is decent for the price, shipping took a while.",
		"Would not recommend, broke after a week of light use.",
		"Exceeded my expectations, five stars well earned.",
		"Does the job but nothing special about it.",
		"The photos do not do it justice, looks great in person.",
		"Customer support was helpful when a part arrived damaged.",
		"Bought a second one as a gift, both holding up well.",
	}
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("review-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := seed(ctx, pool, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("seed complete",
		slog.Int("users", userCount),
		slog.Int("products", productCount),
	)
}

func seed(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	if _, err := pool.Exec(ctx, `TRUNCATE sessions, reviews, products, users`); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	log.Info("existing data removed")

	userIDs, err := seedUsers(ctx, pool)
	if err != nil {
		return err
	}

	productIDs, err := seedProducts(ctx, pool)
	if err != nil {
		return err
	}

	reviewTotal, err := seedReviews(ctx, pool, productIDs, userIDs)
	if err != nil {
		return err
	}
	log.Info("reviews inserted", slog.Int("count", reviewTotal))

	// Fix up the denormalized aggregates in one pass.
	_, err = pool.Exec(ctx, `
		UPDATE products p
		SET review_count = agg.cnt,
		    rating = agg.avg
		FROM (
			SELECT product_id, COUNT(*) AS cnt, AVG(rating) AS avg
			FROM reviews
			GROUP BY product_id
		) agg
		WHERE p.id = agg.product_id`)
	if err != nil {
		return fmt.Errorf("recompute product aggregates: %w", err)
	}

	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	ids := make([]string, 0, userCount)

	for i := 0; i < userCount; i++ {
		first := firstNames[i%len(firstNames)]
		last := lastNames[rand.IntN(len(lastNames))]
		id := fmt.Sprintf("seed-user-%03d", i+1)

		_, err := pool.Exec(ctx, `
			INSERT INTO users (id, name, email, image, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			id,
			first+" "+last,
			fmt.Sprintf("%s.%s.%d@example.com", first, last, i+1),
			fmt.Sprintf("https://i.pravatar.cc/150?u=%s", id),
			time.Now().UTC(),
		)
		if err != nil {
			return nil, fmt.Errorf("insert user %s: %w", id, err)
		}

		// A long-lived demo session per user so authenticated endpoints can
		// be exercised against seeded data.
		_, err = pool.Exec(ctx, `
			INSERT INTO sessions (token, user_id, expires_at)
			VALUES ($1, $2, $3)`,
			fmt.Sprintf("seed-session-%03d", i+1),
			id,
			time.Now().UTC().Add(30*24*time.Hour),
		)
		if err != nil {
			return nil, fmt.Errorf("insert session for %s: %w", id, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	ids := make([]string, 0, productCount)
	seen := make(map[string]struct{}, productCount)

	for len(ids) < productCount {
		name := fmt.Sprintf("%s %s %s",
			adjectives[rand.IntN(len(adjectives))],
			materials[rand.IntN(len(materials))],
			items[rand.IntN(len(items))],
		)
		s := slug.Generate(name)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}

		id := uuid.New().String()
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, slug, description, image, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id,
			name,
			s,
			fmt.Sprintf("The %s combines timeless design with everyday utility.", name),
			fmt.Sprintf("https://picsum.photos/seed/%s/640/480", s),
			time.Now().UTC().Add(-time.Duration(rand.IntN(90*24))*time.Hour),
		)
		if err != nil {
			return nil, fmt.Errorf("insert product %s: %w", s, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func seedReviews(ctx context.Context, pool *pgxpool.Pool, productIDs, userIDs []string) (int, error) {
	total := 0

	for _, productID := range productIDs {
		// Distinct reviewers per product, at most one review each.
		reviewers := rand.Perm(len(userIDs))[:rand.IntN(maxReviews+1)]

		for _, u := range reviewers {
			_, err := pool.Exec(ctx, `
				INSERT INTO reviews (id, product_id, author_id, rating, content, date)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.New().String(),
				productID,
				userIDs[u],
				1+rand.IntN(5),
				reviewSnippets[rand.IntN(len(reviewSnippets))],
				time.Now().UTC().Add(-time.Duration(rand.IntN(60*24))*time.Hour),
			)
			if err != nil {
				return 0, fmt.Errorf("insert review for product %s: %w", productID, err)
			}
			total++
		}
	}

	return total, nil
}
