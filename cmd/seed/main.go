package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/gighub/internal/config"
	"github.com/sudo-init-do/gighub/internal/db"
	"github.com/sudo-init-do/gighub/internal/logging"
	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
)

const samplePassword = "password123"

type seedUser struct {
	name, email, bio string
	role             user.Role
	skills           []string
}

var sampleUsers = []seedUser{
	{"John Client", "john@example.com", "Startup founder looking for talented freelancers", user.RoleClient, nil},
	{"Sarah Designer", "sarah@example.com", "Professional UI/UX designer with 5 years experience", user.RoleFreelancer,
		[]string{"UI Design", "UX Research", "Figma", "Adobe XD"}},
	{"Mike Developer", "mike@example.com", "Full-stack developer specializing in React and Node.js", user.RoleFreelancer,
		[]string{"React", "Node.js", "JavaScript", "MongoDB"}},
	{"Lisa Writer", "lisa@example.com", "Content writer and copywriter with expertise in tech", user.RoleFreelancer,
		[]string{"Content Writing", "Copywriting", "SEO", "Technical Writing"}},
}

type seedJob struct {
	title, description string
	category           marketplace.Category
	min, max           float64
	duration           marketplace.Duration
	skills             []string
}

var sampleJobs = []seedJob{
	{
		"Modern Logo Design for Tech Startup",
		"We need a modern, professional logo for our tech startup. Looking for something clean, memorable, and scalable. The logo should work well in both digital and print formats. We prefer a minimalist approach with our brand colors (blue and white).",
		marketplace.CategoryDesign, 200, 500, marketplace.DurationOneToTwo,
		[]string{"Logo Design", "Illustration", "Brand Identity"},
	},
	{
		"E-commerce Website Development",
		"Build a responsive e-commerce website using React and Node.js. Need product listings, shopping cart, user authentication, and payment integration. Looking for someone with experience in building similar platforms.",
		marketplace.CategoryDevelopment, 1500, 3000, marketplace.DurationTwoToFour,
		[]string{"React", "Node.js", "MongoDB", "E-commerce"},
	},
	{
		"Blog Content Writing - Technology Articles",
		"Need 10 technology blog posts (800-1200 words each) about latest trends in AI and machine learning. Looking for engaging, well-researched content with proper SEO optimization.",
		marketplace.CategoryWriting, 300, 600, marketplace.DurationTwoToFour,
		[]string{"Content Writing", "SEO", "Technology", "Research"},
	},
	{
		"Social Media Marketing Campaign",
		"Create and manage a 3-month social media marketing campaign for our SaaS product. Need strategy development, content creation, and analytics reporting.",
		marketplace.CategoryMarketing, 800, 1500, marketplace.DurationOneToThree,
		[]string{"Social Media", "Marketing Strategy", "Content Creation"},
	},
}

type seedBid struct {
	job        int
	freelancer string
	amount     float64
	duration   marketplace.Duration
	message    string
}

var sampleBids = []seedBid{
	{0, "sarah@example.com", 350, marketplace.DurationOneToTwo,
		"I can create a stunning logo that perfectly represents your brand. I have 5 years of experience in logo design and brand identity."},
	{0, "mike@example.com", 280, marketplace.DurationTwoToFour,
		"As a full-stack developer with design skills, I can create a modern logo that works perfectly with your tech brand."},
	{1, "mike@example.com", 2200, marketplace.DurationTwoToFour,
		"I specialize in building e-commerce platforms with React and Node.js. I can deliver a high-quality, scalable solution."},
	{2, "lisa@example.com", 450, marketplace.DurationTwoToFour,
		"I write engaging tech content with a focus on AI and machine learning. I can deliver well-researched, SEO-optimized articles."},
}

func main() {
	configPath := flag.String("config", "", "optional config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("seed: %v", err)
	}

	fmt.Println("Sample login credentials (password " + samplePassword + "):")
	for _, u := range sampleUsers {
		fmt.Printf("  %-10s %s\n", u.role, u.email)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := db.Connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	return seed(ctx, s, logger)
}

func seed(ctx context.Context, s db.Backend, logger *logrus.Logger) error {
	if _, err := s.GetUserByEmail(ctx, sampleUsers[0].email); err == nil {
		logger.Info("sample data already present, nothing to do")
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(samplePassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	users := make(map[string]*user.User, len(sampleUsers))
	for _, su := range sampleUsers {
		skills := su.skills
		if skills == nil {
			skills = []string{}
		}
		u := &user.User{
			ID: uuid.NewString(), Name: su.name, Email: su.email, Password: string(hash),
			Role: su.role, Bio: su.bio, Skills: skills, CreatedAt: now, UpdatedAt: now,
		}
		if err := s.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("create user %s: %w", su.email, err)
		}
		users[su.email] = u
	}
	client := users["john@example.com"]
	logger.WithField("count", len(users)).Info("created sample users")

	jobs := make([]*marketplace.Job, 0, len(sampleJobs))
	for i, sj := range sampleJobs {
		lo, hi := sj.min, sj.max
		at := now.Add(time.Duration(i) * time.Second)
		j := &marketplace.Job{
			ID: uuid.NewString(), Title: sj.title, Description: sj.description, Category: sj.category,
			Budget: marketplace.Budget{Min: &lo, Max: &hi}, Duration: sj.duration,
			ClientID: client.ID, Status: marketplace.JobOpen, Bids: []string{},
			SkillsRequired: sj.skills, Attachments: []marketplace.Attachment{},
			CreatedAt: at, UpdatedAt: at,
		}
		if err := s.CreateJob(ctx, j); err != nil {
			return fmt.Errorf("create job %q: %w", sj.title, err)
		}
		jobs = append(jobs, j)
	}
	logger.WithField("count", len(jobs)).Info("created sample jobs")

	for i, sb := range sampleBids {
		at := now.Add(time.Duration(len(jobs)+i) * time.Second)
		b := &marketplace.Bid{
			ID: uuid.NewString(), JobID: jobs[sb.job].ID, FreelancerID: users[sb.freelancer].ID,
			Amount: sb.amount, Duration: sb.duration, Message: sb.message,
			Status: marketplace.BidPending, CreatedAt: at, UpdatedAt: at,
		}
		if err := s.CreateBid(ctx, b); err != nil {
			return fmt.Errorf("create bid: %w", err)
		}
	}
	logger.WithField("count", len(sampleBids)).Info("created sample bids")

	// The marketing job goes through the real lifecycle so its rating is legal.
	sarah := users["sarah@example.com"]
	marketing := jobs[3]
	if _, err := s.AssignFreelancer(ctx, marketing.ID, sarah.ID); err != nil {
		return fmt.Errorf("assign marketing job: %w", err)
	}
	if _, err := s.TransitionJob(ctx, marketing.ID, marketplace.JobInProgress, marketplace.JobCompleted); err != nil {
		return fmt.Errorf("complete marketing job: %w", err)
	}
	five := 5
	if err := s.CreateRating(ctx, &marketplace.Rating{
		ID:              uuid.NewString(),
		JobID:           marketing.ID,
		ClientID:        client.ID,
		FreelancerID:    sarah.ID,
		Rating:          5,
		Feedback:        "Excellent work! Sarah delivered beyond expectations and the campaign results were amazing.",
		Quality:         &five,
		Communication:   &five,
		Professionalism: &five,
		CreatedAt:       now,
	}); err != nil {
		return fmt.Errorf("create rating: %w", err)
	}
	if _, err := s.RecomputeFreelancerRating(ctx, sarah.ID); err != nil {
		return fmt.Errorf("recompute rating: %w", err)
	}
	logger.Info("created sample ratings")
	return nil
}
