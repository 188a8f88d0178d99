package store

import (
	"context"
	"fmt"

	"github.com/isdelr/profileapp-be/internal/models"
)

// demoProfiles is the showcase data the app ships with. Owners have no
// accounts, so these records are read-only in practice.
var demoProfiles = []models.Profile{
	{Name: "Alex Thompson", Email: "alex@example.com", Title: "Full Stack Developer", Username: "alexdev",
		Bio:      "Passionate developer with 5+ years of experience building web applications. Skilled in React, Node.js, and cloud infrastructure. Love to contribute to open source projects and mentor junior developers.",
		ImageURL: "https://images.unsplash.com/photo-1519085360753-af0119f7cbe7?w=500&h=500&fit=crop"},
	{Name: "Samantha Chen", Email: "samantha@example.com", Title: "UX/UI Designer", Username: "samdesign",
		Bio:      "Creative designer specializing in user-centered design processes. I blend aesthetic appeal with functional design to create engaging digital experiences. Strong background in accessibility and inclusive design.",
		ImageURL: "https://images.unsplash.com/photo-1534528741775-53994a69daeb?w=500&h=500&fit=crop"},
	{Name: "Marcus Johnson", Email: "marcus@example.com", Title: "Data Scientist", Username: "marcusdata",
		Bio:      "Data scientist with expertise in machine learning and AI. I help organizations make sense of their data and derive meaningful insights. Experienced in Python, TensorFlow, and data visualization.",
		ImageURL: "https://images.unsplash.com/photo-1506794778202-cad84cf45f1d?w=500&h=500&fit=crop"},
	{Name: "Olivia Rodriguez", Email: "olivia@example.com", Title: "Product Manager", Username: "oliviapm",
		Bio:      "Product manager with a background in both technology and business. I bridge the gap between user needs and technical solutions. Skilled in agile methodologies, roadmap planning, and stakeholder communication.",
		ImageURL: "https://images.unsplash.com/photo-1531746020798-e6953c6e8e04?w=500&h=500&fit=crop"},
	{Name: "Daniel Kim", Email: "daniel@example.com", Title: "DevOps Engineer", Username: "danielops",
		Bio:      "DevOps engineer focused on automation and infrastructure as code. I build robust CI/CD pipelines and ensure scalable, secure deployments. Experienced with AWS, Docker, Kubernetes, and Terraform.",
		ImageURL: "https://images.unsplash.com/photo-1500648767791-00dcc994a43e?w=500&h=500&fit=crop"},
	{Name: "Elena Martinez", Email: "elena@example.com", Title: "Frontend Developer", Username: "elenafront",
		Bio:      "Frontend developer with an eye for design. I create responsive, accessible, and performant user interfaces that delight users. Skilled in React, Vue, and modern CSS techniques.",
		ImageURL: "https://images.unsplash.com/photo-1494790108377-be9c29b29330?w=500&h=500&fit=crop"},
	{Name: "James Wilson", Email: "james@example.com", Title: "Full Stack Developer", Username: "jamesweb",
		Bio:      "Full stack developer with expertise in JavaScript ecosystem. I build robust applications from front to back. Strong knowledge of React, Node.js, Express, and MongoDB. Passionate about clean code and testing.",
		ImageURL: "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=500&h=500&fit=crop"},
	{Name: "Priya Patel", Email: "priya@example.com", Title: "UX/UI Designer", Username: "priyauxui",
		Bio:      "UX/UI designer focusing on creating intuitive and accessible user interfaces. I follow a user-centered design approach to create products that meet both user needs and business goals. Skilled in Figma and Adobe XD.",
		ImageURL: "https://images.unsplash.com/photo-1544005313-94ddf0286df2?w=500&h=500&fit=crop"},
	{Name: "David Wang", Email: "david@example.com", Title: "Data Scientist", Username: "daviddata",
		Bio:      "Data scientist with strong mathematical background. I specialize in predictive modeling and natural language processing. Proficient in Python, scikit-learn, and deep learning frameworks. I enjoy solving complex problems with data.",
		ImageURL: "https://images.unsplash.com/photo-1504257432389-52343af06ae3?w=500&h=500&fit=crop"},
	{Name: "Rachel Morrison", Email: "rachel@example.com", Title: "Product Manager", Username: "rachelpm",
		Bio:      "Product manager passionate about building great products that solve real problems. Experienced in market research, user interviews, and product strategy. I excel at coordinating cross-functional teams to deliver impactful features.",
		ImageURL: "https://images.unsplash.com/photo-1598550874175-4d0ef436c909?w=500&h=500&fit=crop"},
	{Name: "Michael Lee", Email: "michael@example.com", Title: "DevOps Engineer", Username: "mikedevops",
		Bio:      "DevOps engineer with a passion for automating everything. I specialize in CI/CD pipelines, infrastructure as code, and cloud architecture. Experienced with AWS, Terraform, and Kubernetes. I enjoy making deployment processes smoother and more reliable.",
		ImageURL: "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=500&h=500&fit=crop"},
	{Name: "Sofia Garcia", Email: "sofia@example.com", Title: "Frontend Developer", Username: "sofiadev",
		Bio:      "Frontend developer focused on creating beautiful and performant user interfaces. Experienced in React, TypeScript, and modern CSS. I'm passionate about animation, accessibility, and responsive design. Always learning new technologies to improve my craft.",
		ImageURL: "https://images.unsplash.com/photo-1580489944761-15a19d654956?w=500&h=500&fit=crop"},
}

// SeedDemo inserts the demo profiles when repo is empty. It reports how many
// records were added.
func SeedDemo(ctx context.Context, repo ProfileRepository) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list profiles: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, p := range demoProfiles {
		if _, err := repo.Insert(ctx, p); err != nil {
			return i, fmt.Errorf("failed to seed profile %q: %w", p.Username, err)
		}
	}
	return len(demoProfiles), nil
}
