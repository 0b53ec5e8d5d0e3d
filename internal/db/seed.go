package db

import (
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/vector"
)

// seedEmbeddingDim keeps dev vectors small; production embeddings come from
// the external model at the full dimension.
const seedEmbeddingDim = 64

// SeedTestData resets the database and populates it with two orgs and a
// dozen users, each with a profile and a deterministic pseudo-embedding
// derived from the profile text. A couple of safety flags and one historical
// match exercise the filters.
func SeedTestData(gdb *gorm.DB) error {
	for _, table := range []string{"audit_events", "intros", "matches", "safety_flags", "embeddings", "profiles", "users", "orgs"} {
		if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	orgs := []Org{
		{Name: "Acme Labs", Domain: "acmelabs.com"},
		{Name: "Borealis Co", Domain: "borealis.io"},
	}
	if err := gdb.Create(&orgs).Error; err != nil {
		return fmt.Errorf("failed to seed orgs: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	profiles := []Profile{
		{Interests: "distributed systems, woodworking, trail running", CurrentProject: "building a raft consensus library", RabbitHole: "byzantine fault tolerance papers", ConnectionType: "collaboration"},
		{Interests: "machine learning, pottery, chess", CurrentProject: "fine-tuning embedding models", RabbitHole: "mechanistic interpretability", ConnectionType: "mentorship"},
		{Interests: "distributed systems, photography", CurrentProject: "migrating services to event sourcing", RabbitHole: "byzantine generals problem variants", ConnectionType: "collaboration"},
		{Interests: "gardening, databases, cycling", CurrentProject: "query planner optimization", RabbitHole: "soil chemistry", ConnectionType: "coffee chat"},
		{Interests: "woodworking, compilers", CurrentProject: "a toy language backend", RabbitHole: "hand tool restoration", ConnectionType: "collaboration"},
		{Interests: "climbing, frontend performance", CurrentProject: "rendering pipeline profiling", RabbitHole: "alpine climbing history", ConnectionType: "mentorship"},
	}

	for i := 1; i <= 12; i++ {
		org := orgs[0]
		if i > 6 {
			org = orgs[1]
		}
		user := User{
			OrgID:        org.ID,
			Name:         fmt.Sprintf("User %d", i),
			Email:        fmt.Sprintf("user%d@%s", i, org.Domain),
			PasswordHash: string(hash),
			Status:       UserStatusActive,
		}
		if err := gdb.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		p := profiles[(i-1)%len(profiles)]
		p.UserID = user.ID
		if err := gdb.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}

		emb := Embedding{
			UserID: user.ID,
			Vector: PseudoEmbedding(p.Interests + " " + p.CurrentProject + " " + p.RabbitHole),
			Model:  "seed-hash-64",
		}
		if err := gdb.Create(&emb).Error; err != nil {
			return fmt.Errorf("failed to seed embedding: %w", err)
		}
	}
	log.Println("Seeded 12 users with profiles and embeddings.")

	// one historical pair and one block, so the filters have work to do
	seedMatch := Match{
		UserAID:         1,
		UserBID:         3,
		SimilarityScore: 0.91,
		FinalScore:      0.84,
		SharedInterest:  "You both mentioned distributed",
		Status:          MatchStatusRejected,
		ExpiresAt:       time.Now().Add(-24 * time.Hour),
	}
	if err := gdb.Create(&seedMatch).Error; err != nil {
		return fmt.Errorf("failed to seed match: %w", err)
	}
	flag := SafetyFlag{ReporterID: 2, ReportedID: 5, Reason: "seed"}
	if err := gdb.Create(&flag).Error; err != nil {
		return fmt.Errorf("failed to seed safety flag: %w", err)
	}

	return nil
}

// PseudoEmbedding derives a deterministic unit vector from text by hashed
// bag-of-words. Good enough for dev: similar texts land near each other.
func PseudoEmbedding(text string) string {
	vals := make([]float64, seedEmbeddingDim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?")
		if len(word) < 3 {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vals[h.Sum32()%seedEmbeddingDim]++
	}

	var norm float64
	for _, v := range vals {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vals {
			vals[i] /= norm
		}
	}
	return vector.Encode(vals)
}
