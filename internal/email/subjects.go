package email

const subjectReviewFlaggedFmt = "Review needed: %s"
