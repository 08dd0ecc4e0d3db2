package sqlinline

const QSelectUserStreak = `--sql cd778168-49b6-4fa3-b50c-5161847d4b61
select current_streak, longest_streak, last_activity_date
from users
where id = $1::uuid;
`

// Read-then-write without a row lock; a lost increment under concurrent
// completions for the same user is accepted for gamification data.
const QUpdateUserStreak = `--sql 0ae330ff-fb00-4bf8-9bbd-9011bcc61027
update users
set current_streak = $2::int,
    longest_streak = $3::int,
    last_activity_date = $4::timestamptz,
    updated_at = now()
where id = $1::uuid;
`
