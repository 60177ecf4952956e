package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - User, RefreshToken, PermanentToken from user.go
// - JobApplication, InterviewQuestion from application.go
// - InterviewSession, InterviewResponse from session.go
// - InterviewMetrics, ScorePoint from metrics.go

// Database schema overview:
// 1. users - Managed by cookie-based authentication
// 2. job_applications - One tracked job posting per user, owns everything below
// 3. interview_questions - The question pool generated from a resume analysis
// 4. interview_sessions - One mock-interview practice run per job application
// 5. interview_responses - The ordered question/answer turns within a session
// 6. interview_metrics - The long-lived per-application performance rollup
