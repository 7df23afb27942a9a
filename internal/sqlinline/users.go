package sqlinline

const QInsertUser = `--sql 4b7e2c19-8d3a-4f6e-a1b2-9c0d7e5f3a28
insert into users (id, email, name, password_hash, created_at, updated_at)
values ($1::uuid, lower($2::text), $3::text, $4::text, now(), now())
on conflict (email) do nothing
returning id::text, email, name, password_hash, created_at, updated_at;
`

const QSelectUserByEmail = `--sql a3d9f1e6-2c4b-4e7a-8f15-6b0c9d2e7a41
select id::text, email, name, password_hash, created_at, updated_at
from users
where email = lower($1::text)
limit 1;
`

const QSelectUserByID = `--sql 7c2e5a90-1b3d-4c8f-9e6a-0d4f2b8c1e73
select id::text, email, name, password_hash, created_at, updated_at
from users
where id = $1::uuid
limit 1;
`
